package model

import "fmt"

// StoreID is a 0-based store index. Values are only meaningful for the
// instance that produced or checked them.
type StoreID int

// WarehouseID is a 0-based warehouse index.
type WarehouseID int

// StoreFromOneBased converts the 1-based store numbering used in input files.
func StoreFromOneBased(n int) StoreID { return StoreID(n - 1) }

// WarehouseFromOneBased converts the 1-based warehouse numbering used in input files.
func WarehouseFromOneBased(n int) WarehouseID { return WarehouseID(n - 1) }

// OneBased returns the file/report numbering of the store.
func (s StoreID) OneBased() int { return int(s) + 1 }

// OneBased returns the file/report numbering of the warehouse.
func (w WarehouseID) OneBased() int { return int(w) + 1 }

func (s StoreID) String() string     { return fmt.Sprintf("store %d", s.OneBased()) }
func (w WarehouseID) String() string { return fmt.Sprintf("warehouse %d", w.OneBased()) }

// IncompatiblePair states that stores A and B may never be supplied by the same warehouse.
type IncompatiblePair struct {
	A StoreID `json:"a" yaml:"a"`
	B StoreID `json:"b" yaml:"b"`
}

// InstanceData is the plain shape of an instance as produced by loaders and
// API clients. All indices are 0-based.
type InstanceData struct {
	Warehouses        int                `json:"warehouses" yaml:"warehouses"`
	Stores            int                `json:"stores" yaml:"stores"`
	Capacity          []int              `json:"capacity" yaml:"capacity"`
	FixedCost         []int              `json:"fixedCost" yaml:"fixedCost"`
	Goods             []int              `json:"goods" yaml:"goods"`
	SupplyCost        [][]int            `json:"supplyCost" yaml:"supplyCost"` // [store][warehouse]
	IncompatiblePairs []IncompatiblePair `json:"incompatiblePairs,omitempty" yaml:"incompatiblePairs,omitempty"`
}

// Assignment moves Quantity goods from Warehouse to Store.
type Assignment struct {
	Store     StoreID     `json:"store" yaml:"store"`
	Warehouse WarehouseID `json:"warehouse" yaml:"warehouse"`
	Quantity  int         `json:"quantity" yaml:"quantity"`
}
