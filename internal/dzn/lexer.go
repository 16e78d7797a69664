// Package dzn reads the text formats of the warehouse location problem:
// the dzn-style instance file and the solution file in matrix or list
// notation.
package dzn

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

var ErrSyntax = errors.New("syntax error")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	val  int
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokInt:
		return strconv.Itoa(t.val)
	}
	return fmt.Sprintf("%q", t.text)
}

// lex splits src into identifiers, non-negative integers and single
// punctuation characters. '%' starts a comment running to end of line.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '\n':
			line++
			i++
		case unicode.IsSpace(r):
			i++
		case r == '%':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case unicode.IsDigit(r):
			j := i
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			n, err := strconv.Atoi(string(rs[i:j]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
			}
			toks = append(toks, token{kind: tokInt, text: string(rs[i:j]), val: n, line: line})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[i:j]), line: line})
			i = j
		case r == '-':
			return nil, fmt.Errorf("%w: line %d: negative numbers are not allowed", ErrSyntax, line)
		case r == '=' || r == ';' || r == '[' || r == ']' || r == '|' || r == ',' ||
			r == '(' || r == ')' || r == '{' || r == '}':
			toks = append(toks, token{kind: tokPunct, text: string(r), line: line})
			i++
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected character %q", ErrSyntax, line, r)
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expect(s string) error {
	t := p.next()
	if t.kind != tokPunct || t.text != s {
		return fmt.Errorf("%w: line %d: expected %q, found %s", ErrSyntax, t.line, s, t)
	}
	return nil
}

func (p *parser) integer() (int, error) {
	t := p.next()
	if t.kind != tokInt {
		return 0, fmt.Errorf("%w: line %d: expected integer, found %s", ErrSyntax, t.line, t)
	}
	return t.val, nil
}
