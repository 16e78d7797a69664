package model

import (
	"fmt"
	"io"
	"strings"
)

// Describe writes a human-readable summary of the instance.
func (in *Instance) Describe(w io.Writer) error {
	b := new(strings.Builder)
	fmt.Fprintf(b, "Warehouses: %d\n", in.warehouses)
	fmt.Fprintf(b, "Stores: %d\n", in.stores)
	fmt.Fprintf(b, "Incompatibilities: %d\n", len(in.pairs))
	for i := 0; i < in.warehouses; i++ {
		wh := WarehouseID(i)
		fmt.Fprintf(b, "Warehouse %d: capacity=%d, fixed cost=%d\n", wh.OneBased(), in.capacity[i], in.fixedCost[i])
	}
	for i := 0; i < in.stores; i++ {
		s := StoreID(i)
		fmt.Fprintf(b, "Store %d: demand=%d, supply costs=%v\n", s.OneBased(), in.goods[i], in.supplyCost[i])
	}
	for _, p := range in.pairs {
		fmt.Fprintf(b, "Store %d and store %d are incompatible\n", p.A.OneBased(), p.B.OneBased())
	}
	_, err := io.WriteString(w, b.String())
	return err
}
