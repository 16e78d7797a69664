// Package validate checks a proposed warehouse-to-store supply plan against
// an instance: it accumulates assignments, then computes cost and counts
// constraint violations.
package validate

import (
	"errors"
	"fmt"

	"wlcheck/internal/model"
)

var (
	ErrStoreOutOfRange     = errors.New("store out of range")
	ErrWarehouseOutOfRange = errors.New("warehouse out of range")
	ErrExceedsDemand       = errors.New("quantity exceeds store demand")
	ErrNegativeQuantity    = errors.New("negative quantity")
)

// Engine accumulates supply for one instance. The instance must outlive the
// engine. Engine is not safe for concurrent use: Assign updates several
// counters non-atomically.
type Engine struct {
	in            *model.Instance
	supply        [][]int  // [store][warehouse]
	assignedGoods []int    // per store
	load          []int    // per warehouse
	compatible    [][]bool // [warehouse][store]; only degrades true -> false
}

func NewEngine(in *model.Instance) *Engine {
	e := &Engine{
		in:            in,
		supply:        make([][]int, in.Stores()),
		assignedGoods: make([]int, in.Stores()),
		load:          make([]int, in.Warehouses()),
		compatible:    make([][]bool, in.Warehouses()),
	}
	for s := range e.supply {
		e.supply[s] = make([]int, in.Warehouses())
	}
	for w := range e.compatible {
		row := make([]bool, in.Stores())
		for s := range row {
			row[s] = true
		}
		e.compatible[w] = row
	}
	return e
}

// Instance returns the instance the engine is bound to.
func (e *Engine) Instance() *model.Instance { return e.in }

// Assign moves q more goods from warehouse w to store s. Repeated calls for
// the same pair accumulate. Out-of-range indices and quantities that would
// push the store past its demand are rejected and leave the engine unchanged.
func (e *Engine) Assign(s model.StoreID, w model.WarehouseID, q int) error {
	if !e.in.HasStore(s) {
		return fmt.Errorf("%w: store %d (valid 1..%d)", ErrStoreOutOfRange, s.OneBased(), e.in.Stores())
	}
	if !e.in.HasWarehouse(w) {
		return fmt.Errorf("%w: warehouse %d (valid 1..%d)", ErrWarehouseOutOfRange, w.OneBased(), e.in.Warehouses())
	}
	if q < 0 {
		return fmt.Errorf("%w: %d goods for store %d", ErrNegativeQuantity, q, s.OneBased())
	}
	// compare against the residual; assignedGoods+q can overflow
	if q > e.in.AmountOfGoods(s)-e.assignedGoods[s] {
		return fmt.Errorf("%w: quantity %d for store %d (demand %d, already assigned %d)",
			ErrExceedsDemand, q, s.OneBased(), e.in.AmountOfGoods(s), e.assignedGoods[s])
	}

	e.supply[s][w] += q
	e.assignedGoods[s] += q
	e.load[w] += q
	for i := 0; i < e.in.StoreIncompatibilities(); i++ {
		p := e.in.StoreIncompatibility(i)
		if p.A == s {
			e.compatible[w][p.B] = false
		} else if p.B == s {
			e.compatible[w][p.A] = false
		}
	}
	return nil
}

func (e *Engine) Supply(s model.StoreID, w model.WarehouseID) int { return e.supply[s][w] }
func (e *Engine) Load(w model.WarehouseID) int                    { return e.load[w] }
func (e *Engine) AssignedGoods(s model.StoreID) int               { return e.assignedGoods[s] }

// ResidualCapacity is negative when the warehouse is over capacity.
func (e *Engine) ResidualCapacity(w model.WarehouseID) int { return e.in.Capacity(w) - e.load[w] }

// ResidualAmount is the demand of s not yet assigned.
func (e *Engine) ResidualAmount(s model.StoreID) int {
	return e.in.AmountOfGoods(s) - e.assignedGoods[s]
}

// Compatible reports whether w may still supply s, i.e. no incompatible
// partner of s has been assigned goods from w.
func (e *Engine) Compatible(w model.WarehouseID, s model.StoreID) bool { return e.compatible[w][s] }

// IsOpen reports whether w supplies any goods. Openness is never stored.
func (e *Engine) IsOpen(w model.WarehouseID) bool { return e.load[w] > 0 }

// ComputeSupplyCost returns the sum of supply times unit cost over all cells.
// The magnitude limits of model.InstanceData.Validate keep it within int.
func (e *Engine) ComputeSupplyCost() int {
	cost := 0
	for s := 0; s < e.in.Stores(); s++ {
		for w := 0; w < e.in.Warehouses(); w++ {
			cost += e.supply[s][w] * e.in.SupplyCost(model.StoreID(s), model.WarehouseID(w))
		}
	}
	return cost
}

// ComputeOpeningCost returns the fixed cost of every warehouse with positive load.
func (e *Engine) ComputeOpeningCost() int {
	cost := 0
	for w := 0; w < e.in.Warehouses(); w++ {
		if e.IsOpen(model.WarehouseID(w)) {
			cost += e.in.FixedCost(model.WarehouseID(w))
		}
	}
	return cost
}

func (e *Engine) ComputeCost() int {
	return e.ComputeSupplyCost() + e.ComputeOpeningCost()
}

// ComputeViolations counts unmet demands, exceeded capacities and, for every
// incompatible pair, each warehouse supplying both of its stores.
func (e *Engine) ComputeViolations() int {
	n := 0
	e.eachViolation(func(Violation) { n++ })
	return n
}

// OpenWarehouses lists the warehouses with positive load in index order.
func (e *Engine) OpenWarehouses() []model.WarehouseID {
	var out []model.WarehouseID
	for w := 0; w < e.in.Warehouses(); w++ {
		if e.IsOpen(model.WarehouseID(w)) {
			out = append(out, model.WarehouseID(w))
		}
	}
	return out
}

// AssignAll applies as in order and stops at the first rejected assignment.
// Assignments before the rejected one stay applied.
func (e *Engine) AssignAll(as []model.Assignment) error {
	for i, a := range as {
		if err := e.Assign(a.Store, a.Warehouse, a.Quantity); err != nil {
			return fmt.Errorf("assignment %d: %w", i+1, err)
		}
	}
	return nil
}
