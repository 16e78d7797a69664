package validate_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"wlcheck/internal/model"
	"wlcheck/internal/validate"
)

// twoByTwo: capacities [10,10], fixed costs [5,7], demands [4,6],
// costs [[1,2],[3,1]], stores 1 and 2 incompatible.
func twoByTwo(t *testing.T) *model.Instance {
	t.Helper()
	in, err := model.NewInstance(model.InstanceData{
		Warehouses:        2,
		Stores:            2,
		Capacity:          []int{10, 10},
		FixedCost:         []int{5, 7},
		Goods:             []int{4, 6},
		SupplyCost:        [][]int{{1, 2}, {3, 1}},
		IncompatiblePairs: []model.IncompatiblePair{{A: 0, B: 1}},
	})
	require.NoError(t, err)
	return in
}

func TestEngine_EmptyBaseline(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.Equal(t, 0, e.ComputeSupplyCost())
	require.Equal(t, 0, e.ComputeOpeningCost())
	require.Equal(t, 0, e.ComputeCost())
	require.Equal(t, 2, e.ComputeViolations())
	require.Empty(t, e.OpenWarehouses())
	for w := 0; w < 2; w++ {
		for s := 0; s < 2; s++ {
			require.True(t, e.Compatible(model.WarehouseID(w), model.StoreID(s)))
		}
	}
}

func TestEngine_ZeroDemandStoreIsNotAViolation(t *testing.T) {
	in, err := model.NewInstance(model.InstanceData{
		Warehouses: 1, Stores: 3,
		Capacity: []int{5}, FixedCost: []int{1},
		Goods:      []int{0, 2, 0},
		SupplyCost: [][]int{{1}, {1}, {1}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, validate.NewEngine(in).ComputeViolations())
}

func TestEngine_SharedWarehouseBreaksIncompatibility(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.NoError(t, e.Assign(0, 0, 4))
	require.NoError(t, e.Assign(1, 0, 6))

	require.Equal(t, 22, e.ComputeSupplyCost())
	require.Equal(t, 5, e.ComputeOpeningCost())
	require.Equal(t, 27, e.ComputeCost())
	require.Equal(t, 10, e.Load(0))
	require.Equal(t, 0, e.Load(1))
	require.Equal(t, 0, e.ResidualCapacity(0))
	require.Equal(t, 1, e.ComputeViolations())
	require.Equal(t, map[validate.ViolationKind]int{
		validate.KindDemand: 0, validate.KindCapacity: 0, validate.KindIncompatibility: 1,
	}, e.ViolationsByKind())

	require.False(t, e.Compatible(0, 0))
	require.False(t, e.Compatible(0, 1))
	require.True(t, e.Compatible(1, 0))
	require.True(t, e.Compatible(1, 1))
}

func TestEngine_SeparateWarehouses(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.NoError(t, e.Assign(0, 0, 4))
	require.NoError(t, e.Assign(1, 1, 6))

	require.Equal(t, 10, e.ComputeSupplyCost())
	require.Equal(t, 12, e.ComputeOpeningCost())
	require.Equal(t, 22, e.ComputeCost())
	require.Equal(t, 0, e.ComputeViolations())
	require.True(t, e.Summary().Feasible())
	require.Equal(t, []model.WarehouseID{0, 1}, e.OpenWarehouses())
}

func TestEngine_AssignRejectsExcessDemand(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	err := e.Assign(0, 0, 5)
	require.ErrorIs(t, err, validate.ErrExceedsDemand)
	require.Equal(t, 0, e.Supply(0, 0))
	require.Equal(t, 0, e.AssignedGoods(0))

	require.NoError(t, e.Assign(0, 1, 3))
	require.ErrorIs(t, e.Assign(0, 0, 2), validate.ErrExceedsDemand)
	require.NoError(t, e.Assign(0, 0, 1))
	require.Equal(t, 0, e.ResidualAmount(0))
	require.ErrorIs(t, e.Assign(0, 0, 1), validate.ErrExceedsDemand)
}

func TestEngine_AssignRejectsHugeQuantityAfterPartialAssignment(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.NoError(t, e.Assign(0, 0, 1))
	require.ErrorIs(t, e.Assign(0, 0, math.MaxInt), validate.ErrExceedsDemand)
	require.Equal(t, 1, e.AssignedGoods(0))
	require.Equal(t, 1, e.Supply(0, 0))
	require.Equal(t, 1, e.Load(0))
	require.Equal(t, 6, e.ComputeCost())

	require.ErrorIs(t, e.AssignAll([]model.Assignment{{Store: 1, Warehouse: 1, Quantity: math.MaxInt}}), validate.ErrExceedsDemand)
	require.Equal(t, 0, e.AssignedGoods(1))
}

func TestEngine_CostAtMagnitudeLimits(t *testing.T) {
	in, err := model.NewInstance(model.InstanceData{
		Warehouses: 1,
		Stores:     1,
		Capacity:   []int{model.MaxMagnitude},
		FixedCost:  []int{model.MaxMagnitude},
		Goods:      []int{model.MaxMagnitude},
		SupplyCost: [][]int{{model.MaxMagnitude}},
	})
	require.NoError(t, err)
	e := validate.NewEngine(in)
	require.NoError(t, e.Assign(0, 0, model.MaxMagnitude))
	require.Equal(t, model.MaxMagnitude*model.MaxMagnitude, e.ComputeSupplyCost())
	require.Equal(t, model.MaxMagnitude*model.MaxMagnitude+model.MaxMagnitude, e.ComputeCost())
	require.Positive(t, e.ComputeCost())
}

func TestSummary_ViolationJSON(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	b, err := json.Marshal(e.Summary().Violations[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"demand","store":0,"limit":4,"actual":0}`, string(b))
}

func TestEngine_AssignRejectsBadInput(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.ErrorIs(t, e.Assign(2, 0, 1), validate.ErrStoreOutOfRange)
	require.ErrorIs(t, e.Assign(-1, 0, 1), validate.ErrStoreOutOfRange)
	require.ErrorIs(t, e.Assign(0, 2, 1), validate.ErrWarehouseOutOfRange)
	require.ErrorIs(t, e.Assign(0, -1, 1), validate.ErrWarehouseOutOfRange)
	require.ErrorIs(t, e.Assign(0, 0, -1), validate.ErrNegativeQuantity)
	require.Equal(t, 0, e.AssignedGoods(0))
}

func TestEngine_AssignIsAdditiveAndOrderIndependent(t *testing.T) {
	split := validate.NewEngine(twoByTwo(t))
	require.NoError(t, split.Assign(1, 0, 2))
	require.NoError(t, split.Assign(0, 1, 1))
	require.NoError(t, split.Assign(1, 0, 3))
	require.NoError(t, split.Assign(0, 1, 3))

	whole := validate.NewEngine(twoByTwo(t))
	require.NoError(t, whole.Assign(0, 1, 4))
	require.NoError(t, whole.Assign(1, 0, 5))

	for s := model.StoreID(0); s < 2; s++ {
		require.Equal(t, whole.AssignedGoods(s), split.AssignedGoods(s))
		for w := model.WarehouseID(0); w < 2; w++ {
			require.Equal(t, whole.Supply(s, w), split.Supply(s, w))
			require.Equal(t, whole.Compatible(w, s), split.Compatible(w, s))
		}
	}
	for w := model.WarehouseID(0); w < 2; w++ {
		require.Equal(t, whole.Load(w), split.Load(w))
	}
	require.Equal(t, whole.Summary(), split.Summary())
}

func TestEngine_ZeroAssignmentKeepsWarehouseClosed(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.NoError(t, e.Assign(0, 1, 0))
	require.False(t, e.IsOpen(1))
	require.Equal(t, 0, e.ComputeOpeningCost())
}

func TestEngine_CapacityAndFanOut(t *testing.T) {
	in, err := model.NewInstance(model.InstanceData{
		Warehouses: 2, Stores: 3,
		Capacity:   []int{3, 100},
		FixedCost:  []int{10, 20},
		Goods:      []int{4, 4, 1},
		SupplyCost: [][]int{{1, 1}, {1, 1}, {1, 1}},
		// duplicate pair counts twice
		IncompatiblePairs: []model.IncompatiblePair{{A: 0, B: 1}, {A: 1, B: 0}},
	})
	require.NoError(t, err)
	e := validate.NewEngine(in)
	require.NoError(t, e.AssignAll([]model.Assignment{
		{Store: 0, Warehouse: 0, Quantity: 2},
		{Store: 0, Warehouse: 1, Quantity: 2},
		{Store: 1, Warehouse: 0, Quantity: 2},
		{Store: 1, Warehouse: 1, Quantity: 2},
	}))
	// store 3 unmet, warehouse 1 over capacity (4 > 3), 2 pairs x 2 warehouses
	byKind := e.ViolationsByKind()
	require.Equal(t, 1, byKind[validate.KindDemand])
	require.Equal(t, 1, byKind[validate.KindCapacity])
	require.Equal(t, 4, byKind[validate.KindIncompatibility])
	require.Equal(t, 6, e.ComputeViolations())
	require.Len(t, e.Violations(), 6)
	require.Equal(t, -1, e.ResidualCapacity(0))
	// opening cost ignores how full a warehouse is
	require.Equal(t, 30, e.ComputeOpeningCost())
}

func TestEngine_AssignAllStopsAtFirstError(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	err := e.AssignAll([]model.Assignment{
		{Store: 0, Warehouse: 0, Quantity: 4},
		{Store: 1, Warehouse: 5, Quantity: 1},
		{Store: 1, Warehouse: 1, Quantity: 6},
	})
	require.ErrorIs(t, err, validate.ErrWarehouseOutOfRange)
	require.Contains(t, err.Error(), "assignment 2")
	require.Equal(t, 4, e.AssignedGoods(0))
	require.Equal(t, 0, e.AssignedGoods(1))
}

func TestEngine_PrintReport(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.NoError(t, e.Assign(0, 0, 4))
	require.NoError(t, e.Assign(1, 0, 6))

	var buf bytes.Buffer
	require.NoError(t, e.PrintReport(&buf))
	want := strings.Join([]string{
		"Moving 4 goods from warehouse 1 to store 1, cost 4x1 = 4 (4)",
		"Moving 6 goods from warehouse 1 to store 2, cost 6x3 = 18 (22)",
		"Opening warehouse 1, cost 5 (27)",
		"Warehouse 1 supplies incompatible stores 1 and 2",
		"Number of violations: 1",
		"Cost: 27 = 22 (supply cost) + 5 (opening cost)",
		"",
	}, "\n")
	require.Equal(t, want, buf.String())
}

func TestEngine_PrintViolationsDemandAndCapacity(t *testing.T) {
	in, err := model.NewInstance(model.InstanceData{
		Warehouses: 1, Stores: 2,
		Capacity: []int{3}, FixedCost: []int{1},
		Goods:      []int{2, 5},
		SupplyCost: [][]int{{1}, {1}},
	})
	require.NoError(t, err)
	e := validate.NewEngine(in)
	require.NoError(t, e.Assign(1, 0, 5))

	var buf bytes.Buffer
	require.NoError(t, e.PrintViolations(&buf))
	require.Equal(t,
		"Goods of store 1 are not moved completely (amount = 2, moved = 0)\n"+
			"Goods of warehouse 1 exceed its capacity (capacity = 3, moved = 5)\n",
		buf.String())
}

func TestEngine_UsageAndList(t *testing.T) {
	e := validate.NewEngine(twoByTwo(t))
	require.NoError(t, e.Assign(0, 0, 4))
	require.NoError(t, e.Assign(1, 1, 5))

	var usage bytes.Buffer
	require.NoError(t, e.PrintUsage(&usage))
	require.Equal(t, "Warehouse 1: 4/10 (40.0%)\nWarehouse 2: 5/10 (50.0%)\nOpen warehouses: [1, 2]\n", usage.String())

	var list bytes.Buffer
	require.NoError(t, e.WriteList(&list))
	require.Equal(t, "{(1, 1, 4), (2, 2, 5)}\n", list.String())
}
