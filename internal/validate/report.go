package validate

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"wlcheck/internal/model"
)

// Report is the serialisable outcome of a validation.
type Report struct {
	SupplyCost     int                   `json:"supplyCost"`
	OpeningCost    int                   `json:"openingCost"`
	Cost           int                   `json:"cost"`
	ViolationCount int                   `json:"violationCount"`
	ByKind         map[ViolationKind]int `json:"byKind"`
	Violations     []Violation           `json:"violations"`
	OpenWarehouses []model.WarehouseID   `json:"openWarehouses"`
}

// Feasible reports whether the plan breaks no constraint.
func (r Report) Feasible() bool { return r.ViolationCount == 0 }

// Summary snapshots costs and violations of the current state.
func (e *Engine) Summary() Report {
	vs := e.Violations()
	if vs == nil {
		vs = []Violation{}
	}
	open := e.OpenWarehouses()
	if open == nil {
		open = []model.WarehouseID{}
	}
	return Report{
		SupplyCost:     e.ComputeSupplyCost(),
		OpeningCost:    e.ComputeOpeningCost(),
		Cost:           e.ComputeCost(),
		ViolationCount: len(vs),
		ByKind:         e.ViolationsByKind(),
		Violations:     vs,
		OpenWarehouses: open,
	}
}

// PrintCosts writes one line per supplied cell and per open warehouse, each
// followed by the running total in parentheses.
func (e *Engine) PrintCosts(out io.Writer) error {
	bw := bufio.NewWriter(out)
	cost := 0
	for i := 0; i < e.in.Stores(); i++ {
		s := model.StoreID(i)
		for j := 0; j < e.in.Warehouses(); j++ {
			w := model.WarehouseID(j)
			q := e.supply[s][w]
			if q == 0 {
				continue
			}
			unit := e.in.SupplyCost(s, w)
			cost += q * unit
			fmt.Fprintf(bw, "Moving %d goods from warehouse %d to store %d, cost %dx%d = %d (%d)\n",
				q, w.OneBased(), s.OneBased(), q, unit, q*unit, cost)
		}
	}
	for _, w := range e.OpenWarehouses() {
		cost += e.in.FixedCost(w)
		fmt.Fprintf(bw, "Opening warehouse %d, cost %d (%d)\n", w.OneBased(), e.in.FixedCost(w), cost)
	}
	return bw.Flush()
}

// PrintViolations writes one line per violation in report order.
func (e *Engine) PrintViolations(out io.Writer) error {
	bw := bufio.NewWriter(out)
	e.eachViolation(func(v Violation) {
		fmt.Fprintln(bw, v.String())
	})
	return bw.Flush()
}

// PrintSummary writes the violation count and the cost breakdown.
func (e *Engine) PrintSummary(out io.Writer) error {
	_, err := fmt.Fprintf(out, "Number of violations: %d\nCost: %d = %d (supply cost) + %d (opening cost)\n",
		e.ComputeViolations(), e.ComputeCost(), e.ComputeSupplyCost(), e.ComputeOpeningCost())
	return err
}

// PrintUsage writes the utilisation of each open warehouse and the list of
// open warehouses.
func (e *Engine) PrintUsage(out io.Writer) error {
	bw := bufio.NewWriter(out)
	open := e.OpenWarehouses()
	ids := make([]string, 0, len(open))
	for _, w := range open {
		ids = append(ids, fmt.Sprint(w.OneBased()))
		c := e.in.Capacity(w)
		if c == 0 {
			fmt.Fprintf(bw, "Warehouse %d: %d/%d\n", w.OneBased(), e.load[w], c)
			continue
		}
		fmt.Fprintf(bw, "Warehouse %d: %d/%d (%.1f%%)\n", w.OneBased(), e.load[w], c, float64(e.load[w])/float64(c)*100)
	}
	fmt.Fprintf(bw, "Open warehouses: [%s]\n", strings.Join(ids, ", "))
	return bw.Flush()
}

// PrintReport writes everything the command line tool prints: costs,
// violations and the summary lines.
func (e *Engine) PrintReport(out io.Writer) error {
	if err := e.PrintCosts(out); err != nil {
		return err
	}
	if err := e.PrintViolations(out); err != nil {
		return err
	}
	return e.PrintSummary(out)
}

// WriteList writes the current supply in sparse triple notation,
// {(store, warehouse, quantity), ...}, with 1-based indices.
func (e *Engine) WriteList(out io.Writer) error {
	var parts []string
	for i := 0; i < e.in.Stores(); i++ {
		s := model.StoreID(i)
		for j := 0; j < e.in.Warehouses(); j++ {
			w := model.WarehouseID(j)
			if q := e.supply[s][w]; q > 0 {
				parts = append(parts, fmt.Sprintf("(%d, %d, %d)", s.OneBased(), w.OneBased(), q))
			}
		}
	}
	_, err := fmt.Fprintf(out, "{%s}\n", strings.Join(parts, ", "))
	return err
}
