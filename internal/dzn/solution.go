package dzn

import (
	"fmt"
	"os"
	"strings"

	"wlcheck/internal/model"
)

// Notation names the two equivalent solution layouts.
type Notation string

const (
	NotationMatrix Notation = "matrix"
	NotationList   Notation = "list"
)

// ParseSolution reads a solution for an instance with the given dimensions.
//
// Matrix notation lists supply[s][w] row-major, one row per store:
//
//	[| 4, 0
//	 | 6, 0 |]
//
// List notation gives 1-based (store, warehouse, quantity) triples:
//
//	{(1, 1, 4), (2, 1, 6)}
//
// Zero matrix cells produce no assignment. Indices are not range checked
// here; that is Assign's job. Anything after the closing bracket is ignored.
func ParseSolution(src string, stores, warehouses int) ([]model.Assignment, Notation, error) {
	body, err := solutionBody(src)
	if err != nil {
		return nil, "", err
	}
	toks, err := lex(body)
	if err != nil {
		return nil, "", err
	}
	p := &parser{toks: toks}
	open := p.next()
	switch open.text {
	case "[":
		as, err := p.matrixSolution(stores, warehouses)
		return as, NotationMatrix, err
	case "{":
		as, err := p.listSolution()
		return as, NotationList, err
	}
	return nil, "", fmt.Errorf("%w: solution must start with '[' or '{'", ErrSyntax)
}

// LoadSolution reads a solution file for in.
func LoadSolution(path string, in *model.Instance) ([]model.Assignment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open solution file %s: %w", path, err)
	}
	as, _, err := ParseSolution(string(b), in.Stores(), in.Warehouses())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return as, nil
}

// solutionBody cuts src after the bracket closing the solution, skipping
// leading comments.
func solutionBody(src string) (string, error) {
	rest := src
	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if !strings.HasPrefix(rest, "%") {
			break
		}
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[i+1:]
		} else {
			rest = ""
		}
	}
	if rest == "" {
		return "", fmt.Errorf("%w: empty solution", ErrSyntax)
	}
	var closing byte
	switch rest[0] {
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	default:
		return "", fmt.Errorf("%w: solution must start with '[' or '{', found %q", ErrSyntax, rest[0])
	}
	i := strings.IndexByte(rest, closing)
	if i < 0 {
		return "", fmt.Errorf("%w: missing closing %q", ErrSyntax, closing)
	}
	return rest[:i+1], nil
}

func (p *parser) matrixSolution(stores, warehouses int) ([]model.Assignment, error) {
	var cells []int
	for !p.isPunct("]") {
		t := p.next()
		switch {
		case t.kind == tokInt:
			cells = append(cells, t.val)
		case t.kind == tokPunct && (t.text == "|" || t.text == ","):
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected %s in solution matrix", ErrSyntax, t.line, t)
		}
	}
	if len(cells) != stores*warehouses {
		return nil, fmt.Errorf("%w: solution matrix has %d entries, want %d (%d stores x %d warehouses)",
			ErrSyntax, len(cells), stores*warehouses, stores, warehouses)
	}
	var as []model.Assignment
	for i, q := range cells {
		if q == 0 {
			continue
		}
		as = append(as, model.Assignment{
			Store:     model.StoreID(i / warehouses),
			Warehouse: model.WarehouseID(i % warehouses),
			Quantity:  q,
		})
	}
	return as, nil
}

func (p *parser) listSolution() ([]model.Assignment, error) {
	var as []model.Assignment
	for !p.isPunct("}") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		triple, err := p.ints(")")
		if err != nil {
			return nil, err
		}
		if len(triple) != 3 {
			return nil, fmt.Errorf("%w: triple %d has %d entries", ErrSyntax, len(as)+1, len(triple))
		}
		as = append(as, model.Assignment{
			Store:     model.StoreFromOneBased(triple[0]),
			Warehouse: model.WarehouseFromOneBased(triple[1]),
			Quantity:  triple[2],
		})
		if p.isPunct(",") {
			p.next()
		}
	}
	return as, nil
}
