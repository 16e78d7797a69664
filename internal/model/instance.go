// Package model holds the immutable problem instance of the warehouse
// location problem with store incompatibilities.
package model

import (
	"errors"
	"fmt"
)

var ErrInvalidInstance = errors.New("invalid instance")

// MaxMagnitude bounds every capacity, fixed cost, demand and unit cost, and
// also the total demand and the total fixed cost. With these limits the
// supply cost is at most MaxMagnitude² and every cost fits in a 64-bit int.
const MaxMagnitude = 1_000_000_000

// Instance is read-only after NewInstance returns. Accessors assume the
// indices were checked with HasStore/HasWarehouse (or produced by this
// instance) and panic otherwise.
type Instance struct {
	warehouses int
	stores     int
	capacity   []int
	fixedCost  []int
	goods      []int
	supplyCost [][]int // [store][warehouse]
	pairs      []IncompatiblePair
}

// NewInstance validates d and copies it into an Instance. No partial
// instance is ever returned.
func NewInstance(d InstanceData) (*Instance, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	in := &Instance{
		warehouses: d.Warehouses,
		stores:     d.Stores,
		capacity:   append([]int(nil), d.Capacity...),
		fixedCost:  append([]int(nil), d.FixedCost...),
		goods:      append([]int(nil), d.Goods...),
		supplyCost: make([][]int, d.Stores),
		pairs:      append([]IncompatiblePair(nil), d.IncompatiblePairs...),
	}
	for s, row := range d.SupplyCost {
		in.supplyCost[s] = append([]int(nil), row...)
	}
	return in, nil
}

// Validate checks counts, array lengths, value ranges and pair indices.
func (d InstanceData) Validate() error {
	if d.Warehouses <= 0 {
		return fmt.Errorf("%w: warehouses must be > 0 (got %d)", ErrInvalidInstance, d.Warehouses)
	}
	if d.Stores <= 0 {
		return fmt.Errorf("%w: stores must be > 0 (got %d)", ErrInvalidInstance, d.Stores)
	}
	if err := checkVector("capacity", d.Capacity, d.Warehouses); err != nil {
		return err
	}
	if err := checkVector("fixedCost", d.FixedCost, d.Warehouses); err != nil {
		return err
	}
	if err := checkVector("goods", d.Goods, d.Stores); err != nil {
		return err
	}
	if err := checkTotal("fixedCost", d.FixedCost); err != nil {
		return err
	}
	if err := checkTotal("goods", d.Goods); err != nil {
		return err
	}
	if len(d.SupplyCost) != d.Stores {
		return fmt.Errorf("%w: supplyCost must have %d rows (got %d)", ErrInvalidInstance, d.Stores, len(d.SupplyCost))
	}
	for s, row := range d.SupplyCost {
		if err := checkVector(fmt.Sprintf("supplyCost[%d]", s), row, d.Warehouses); err != nil {
			return err
		}
	}
	for i, p := range d.IncompatiblePairs {
		if p.A < 0 || int(p.A) >= d.Stores || p.B < 0 || int(p.B) >= d.Stores {
			return fmt.Errorf("%w: incompatible pair %d (%d, %d) references a store outside 1..%d",
				ErrInvalidInstance, i+1, p.A.OneBased(), p.B.OneBased(), d.Stores)
		}
		if p.A == p.B {
			return fmt.Errorf("%w: incompatible pair %d names store %d twice", ErrInvalidInstance, i+1, p.A.OneBased())
		}
	}
	return nil
}

func checkVector(name string, v []int, n int) error {
	if len(v) != n {
		return fmt.Errorf("%w: %s must have %d entries (got %d)", ErrInvalidInstance, name, n, len(v))
	}
	for i, x := range v {
		if x < 0 {
			return fmt.Errorf("%w: %s[%d] must be >= 0 (got %d)", ErrInvalidInstance, name, i, x)
		}
		if x > MaxMagnitude {
			return fmt.Errorf("%w: %s[%d] must be <= %d (got %d)", ErrInvalidInstance, name, i, MaxMagnitude, x)
		}
	}
	return nil
}

// checkTotal expects entries already bounded by checkVector.
func checkTotal(name string, v []int) error {
	sum := 0
	for _, x := range v {
		sum += x
		if sum > MaxMagnitude {
			return fmt.Errorf("%w: total %s must be <= %d", ErrInvalidInstance, name, MaxMagnitude)
		}
	}
	return nil
}

func (in *Instance) Warehouses() int { return in.warehouses }
func (in *Instance) Stores() int     { return in.stores }

func (in *Instance) HasStore(s StoreID) bool         { return s >= 0 && int(s) < in.stores }
func (in *Instance) HasWarehouse(w WarehouseID) bool { return w >= 0 && int(w) < in.warehouses }

func (in *Instance) Capacity(w WarehouseID) int  { return in.capacity[w] }
func (in *Instance) FixedCost(w WarehouseID) int { return in.fixedCost[w] }

// AmountOfGoods is the demand of store s: goods that must be moved to it.
func (in *Instance) AmountOfGoods(s StoreID) int { return in.goods[s] }

// SupplyCost is the unit cost of moving goods from w to s.
func (in *Instance) SupplyCost(s StoreID, w WarehouseID) int { return in.supplyCost[s][w] }

// StoreIncompatibilities returns the number of declared pairs, duplicates included.
func (in *Instance) StoreIncompatibilities() int { return len(in.pairs) }

// StoreIncompatibility returns the i-th pair in declaration order.
func (in *Instance) StoreIncompatibility(i int) IncompatiblePair { return in.pairs[i] }

// Data returns a copy of the instance in its plain form.
func (in *Instance) Data() InstanceData {
	d := InstanceData{
		Warehouses:        in.warehouses,
		Stores:            in.stores,
		Capacity:          append([]int(nil), in.capacity...),
		FixedCost:         append([]int(nil), in.fixedCost...),
		Goods:             append([]int(nil), in.goods...),
		SupplyCost:        make([][]int, in.stores),
		IncompatiblePairs: append([]IncompatiblePair(nil), in.pairs...),
	}
	for s, row := range in.supplyCost {
		d.SupplyCost[s] = append([]int(nil), row...)
	}
	return d
}
