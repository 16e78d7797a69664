package validate

import (
	"fmt"

	"wlcheck/internal/model"
)

type ViolationKind string

const (
	KindDemand          ViolationKind = "demand"
	KindCapacity        ViolationKind = "capacity"
	KindIncompatibility ViolationKind = "incompatibility"
)

// Violation is one breached constraint. Store is set for demand violations,
// Warehouse for capacity and incompatibility violations, Pair for the latter.
// In JSON, store and warehouse indices are 0-based like model.InstanceData;
// only String and the printed report number them from 1.
type Violation struct {
	Kind      ViolationKind           `json:"kind"`
	Store     *model.StoreID          `json:"store,omitempty"`
	Warehouse *model.WarehouseID      `json:"warehouse,omitempty"`
	Pair      *model.IncompatiblePair `json:"pair,omitempty"`
	Limit     int                     `json:"limit"`  // demand or capacity
	Actual    int                     `json:"actual"` // assigned goods or load
}

func (v Violation) String() string {
	switch v.Kind {
	case KindDemand:
		return fmt.Sprintf("Goods of store %d are not moved completely (amount = %d, moved = %d)",
			v.Store.OneBased(), v.Limit, v.Actual)
	case KindCapacity:
		return fmt.Sprintf("Goods of warehouse %d exceed its capacity (capacity = %d, moved = %d)",
			v.Warehouse.OneBased(), v.Limit, v.Actual)
	case KindIncompatibility:
		return fmt.Sprintf("Warehouse %d supplies incompatible stores %d and %d",
			v.Warehouse.OneBased(), v.Pair.A.OneBased(), v.Pair.B.OneBased())
	}
	return string(v.Kind)
}

// Violations lists every violation in report order: demand by store,
// capacity by warehouse, then incompatibility by pair and warehouse.
func (e *Engine) Violations() []Violation {
	var out []Violation
	e.eachViolation(func(v Violation) { out = append(out, v) })
	return out
}

// ViolationsByKind counts violations per kind. Kinds without violations are
// present with a zero count.
func (e *Engine) ViolationsByKind() map[ViolationKind]int {
	out := map[ViolationKind]int{KindDemand: 0, KindCapacity: 0, KindIncompatibility: 0}
	e.eachViolation(func(v Violation) { out[v.Kind]++ })
	return out
}

// eachViolation recomputes breaches from supply alone; the compatibility
// matrix is not consulted.
func (e *Engine) eachViolation(fn func(Violation)) {
	for i := 0; i < e.in.Stores(); i++ {
		s := model.StoreID(i)
		if e.assignedGoods[s] < e.in.AmountOfGoods(s) {
			fn(Violation{Kind: KindDemand, Store: &s, Limit: e.in.AmountOfGoods(s), Actual: e.assignedGoods[s]})
		}
	}
	for i := 0; i < e.in.Warehouses(); i++ {
		w := model.WarehouseID(i)
		if e.load[w] > e.in.Capacity(w) {
			fn(Violation{Kind: KindCapacity, Warehouse: &w, Limit: e.in.Capacity(w), Actual: e.load[w]})
		}
	}
	for i := 0; i < e.in.StoreIncompatibilities(); i++ {
		p := e.in.StoreIncompatibility(i)
		for j := 0; j < e.in.Warehouses(); j++ {
			w := model.WarehouseID(j)
			if e.supply[p.A][w] > 0 && e.supply[p.B][w] > 0 {
				fn(Violation{Kind: KindIncompatibility, Warehouse: &w, Pair: &p})
			}
		}
	}
}
