package dzn

import (
	"fmt"
	"os"

	"wlcheck/internal/model"
)

// value is the right-hand side of a dzn assignment.
type value struct {
	line   int
	scalar *int
	list   []int
	rows   [][]int
	matrix bool
}

// ParseInstance reads an instance in dzn notation:
//
//	Warehouses = 2;
//	Stores = 2;
//	Capacity = [10, 10];
//	FixedCost = [5, 7];
//	Goods = [4, 6];
//	SupplyCost = [| 1, 2
//	              | 3, 1 |];
//	Incompatibilities = 1;
//	IncompatiblePairs = [| 1, 2 |];
//
// Store numbers in IncompatiblePairs are 1-based and converted to 0-based.
// Unknown names are ignored.
func ParseInstance(src string) (model.InstanceData, error) {
	var d model.InstanceData
	vals, err := parseAssignments(src)
	if err != nil {
		return d, err
	}

	if d.Warehouses, err = scalar(vals, "Warehouses"); err != nil {
		return d, err
	}
	if d.Stores, err = scalar(vals, "Stores"); err != nil {
		return d, err
	}
	if d.Capacity, err = list(vals, "Capacity"); err != nil {
		return d, err
	}
	if d.FixedCost, err = list(vals, "FixedCost"); err != nil {
		return d, err
	}
	if d.Goods, err = list(vals, "Goods"); err != nil {
		return d, err
	}
	sc, ok := vals["SupplyCost"]
	if !ok {
		return d, fmt.Errorf("%w: missing SupplyCost", ErrSyntax)
	}
	if !sc.matrix {
		return d, fmt.Errorf("%w: line %d: SupplyCost must be a [| ... |] matrix", ErrSyntax, sc.line)
	}
	d.SupplyCost = sc.rows

	if pv, ok := vals["IncompatiblePairs"]; ok {
		if !pv.matrix && len(pv.list) > 0 {
			return d, fmt.Errorf("%w: line %d: IncompatiblePairs must be a [| ... |] matrix", ErrSyntax, pv.line)
		}
		for i, row := range pv.rows {
			if len(row) != 2 {
				return d, fmt.Errorf("%w: line %d: incompatible pair %d has %d entries", ErrSyntax, pv.line, i+1, len(row))
			}
			d.IncompatiblePairs = append(d.IncompatiblePairs, model.IncompatiblePair{
				A: model.StoreFromOneBased(row[0]),
				B: model.StoreFromOneBased(row[1]),
			})
		}
	}
	if _, ok := vals["Incompatibilities"]; ok {
		n, err := scalar(vals, "Incompatibilities")
		if err != nil {
			return d, err
		}
		if n != len(d.IncompatiblePairs) {
			return d, fmt.Errorf("%w: Incompatibilities = %d but %d pairs are listed", ErrSyntax, n, len(d.IncompatiblePairs))
		}
	}
	return d, nil
}

// LoadInstance reads and validates an instance file.
func LoadInstance(path string) (*model.Instance, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input file %s: %w", path, err)
	}
	d, err := ParseInstance(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	in, err := model.NewInstance(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func parseAssignments(src string) (map[string]value, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	vals := map[string]value{}
	for p.peek().kind != tokEOF {
		name := p.next()
		if name.kind != tokIdent {
			return nil, fmt.Errorf("%w: line %d: expected a name, found %s", ErrSyntax, name.line, name)
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		if _, dup := vals[name.text]; dup {
			return nil, fmt.Errorf("%w: line %d: %s assigned twice", ErrSyntax, name.line, name.text)
		}
		vals[name.text] = v
	}
	return vals, nil
}

func (p *parser) value() (value, error) {
	v := value{line: p.peek().line}
	if !p.isPunct("[") {
		n, err := p.integer()
		if err != nil {
			return v, err
		}
		v.scalar = &n
		return v, nil
	}
	p.next()
	if p.isPunct("|") {
		p.next()
		v.matrix = true
		rows, err := p.rows()
		v.rows = rows
		return v, err
	}
	l, err := p.ints("]")
	v.list = l
	return v, err
}

// ints reads a comma separated list (trailing comma allowed) and consumes
// the closing punctuation.
func (p *parser) ints(closing string) ([]int, error) {
	out := []int{}
	for !p.isPunct(closing) {
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		if p.isPunct(",") {
			p.next()
			continue
		}
		if !p.isPunct(closing) {
			t := p.peek()
			return nil, fmt.Errorf("%w: line %d: expected \",\" or %q, found %s", ErrSyntax, t.line, closing, t)
		}
	}
	p.next()
	return out, nil
}

// rows reads matrix rows after the opening "[|" up to and including "|]".
func (p *parser) rows() ([][]int, error) {
	var out [][]int
	if p.isPunct("]") {
		p.next()
		return out, nil
	}
	for {
		row, err := p.ints("|")
		if err != nil {
			return nil, err
		}
		// "| |" between rows and "[||]" yield empty rows; no row is legitimately empty.
		if len(row) > 0 {
			out = append(out, row)
		}
		if p.isPunct("]") {
			p.next()
			return out, nil
		}
	}
}

func scalar(vals map[string]value, name string) (int, error) {
	v, ok := vals[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrSyntax, name)
	}
	if v.scalar == nil {
		return 0, fmt.Errorf("%w: line %d: %s must be an integer", ErrSyntax, v.line, name)
	}
	return *v.scalar, nil
}

func list(vals map[string]value, name string) ([]int, error) {
	v, ok := vals[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrSyntax, name)
	}
	if v.scalar != nil || v.matrix {
		return nil, fmt.Errorf("%w: line %d: %s must be a [ ... ] list", ErrSyntax, v.line, name)
	}
	return v.list, nil
}
