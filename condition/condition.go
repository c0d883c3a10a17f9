// Package condition parses the small boolean expressions that gate
// conditional template fields. Expressions are parsed once at template
// validation time and evaluated against the partially built record on
// every line.
//
// Grammar:
//
//	expr    := and (('||' | 'or') and)*
//	and     := term (('&&' | 'and') term)*
//	term    := '(' expr ')' | comparison
//	compare := field ('==' '!=' '>=' '<=' '>' '<') literal
//	         | field 'in' '[' literal (',' literal)* ']'
package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Lookup resolves a field name against the record built so far. The second
// return reports whether the field is present.
type Lookup func(name string) (any, bool)

// An Expr is a parsed condition ready for repeated evaluation.
type Expr struct {
	root   node
	fields []string
}

// Eval runs the expression against the given record lookup. Referencing a
// field that is absent from the record is an error, not false: validation
// already guaranteed the field is declared earlier, so absence means an
// upstream conditional skipped it.
func (e *Expr) Eval(lookup Lookup) (bool, error) {
	return e.root.eval(lookup)
}

// Fields returns every field name the expression references, in order of
// first appearance. Template validation uses this to reject forward
// references.
func (e *Expr) Fields() []string {
	return e.fields
}

type node interface {
	eval(lookup Lookup) (bool, error)
}

type boolNode struct {
	and         bool
	left, right node
}

func (n *boolNode) eval(lookup Lookup) (bool, error) {
	left, err := n.left.eval(lookup)
	if err != nil {
		return false, err
	}

	// Short-circuit
	if n.and && !left {
		return false, nil
	}
	if !n.and && left {
		return true, nil
	}

	return n.right.eval(lookup)
}

type compareNode struct {
	field string
	op    string
	lit   any
}

func (n *compareNode) eval(lookup Lookup) (bool, error) {
	value, ok := lookup(n.field)
	if !ok {
		return false, fmt.Errorf("condition references absent field '%s'", n.field)
	}

	switch n.op {
	case "==":
		return equal(value, n.lit), nil
	case "!=":
		return !equal(value, n.lit), nil
	}

	// Ordering operators only make sense on numbers
	a, aok := asFloat(value)
	b, bok := asFloat(n.lit)
	if !aok || !bok {
		return false, fmt.Errorf(
			"cannot compare field '%s' (%T) with %v using '%s'", n.field, value, n.lit, n.op,
		)
	}

	switch n.op {
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	}

	return false, fmt.Errorf("unknown operator '%s'", n.op)
}

type inNode struct {
	field string
	set   []any
}

func (n *inNode) eval(lookup Lookup) (bool, error) {
	value, ok := lookup(n.field)
	if !ok {
		return false, fmt.Errorf("condition references absent field '%s'", n.field)
	}

	for _, member := range n.set {
		if equal(value, member) {
			return true, nil
		}
	}
	return false, nil
}

// equal compares generated values against literals, treating all numeric
// types as interchangeable.
func equal(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Parse compiles a condition expression. Syntax errors are returned with
// enough position info for the template loader to surface them.
func Parse(input string) (*Expr, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected '%s' at end of condition", p.tokens[p.pos].text)
	}

	expr := &Expr{root: root}
	collectFields(root, &expr.fields)

	return expr, nil
}

func collectFields(n node, out *[]string) {
	switch t := n.(type) {
	case *boolNode:
		collectFields(t.left, out)
		collectFields(t.right, out)
	case *compareNode:
		appendField(out, t.field)
	case *inNode:
		appendField(out, t.field)
	}
}

func appendField(out *[]string, name string) {
	for _, existing := range *out {
		if existing == name {
			return
		}
	}
	*out = append(*out, name)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokOp
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(input string) ([]token, error) {
	var tokens []token

	runes := []rune(input)
	i := 0
	for i < len(runes) {
		c := runes[i]

		switch {
		case unicode.IsSpace(c):
			i++

		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string in condition")
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j])})
			i = j + 1

		case unicode.IsDigit(c) || (c == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j

		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			tokens = append(tokens, token{tokIdent, string(runes[i:j])})
			i = j

		case strings.ContainsRune("()[],", c):
			tokens = append(tokens, token{tokPunct, string(c)})
			i++

		default:
			// Multi-char operators first
			rest := string(runes[i:])
			matched := false
			for _, op := range []string{"==", "!=", ">=", "<=", "&&", "||", ">", "<"} {
				if strings.HasPrefix(rest, op) {
					tokens = append(tokens, token{tokOp, op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("unexpected character '%c' in condition", c)
			}
		}
	}

	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || !(tok.text == "||" || (tok.kind == tokIdent && tok.text == "or")) {
			return left, nil
		}
		p.pos++

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolNode{and: false, left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || !(tok.text == "&&" || (tok.kind == tokIdent && tok.text == "and")) {
			return left, nil
		}
		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &boolNode{and: true, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of condition")
	}

	if tok.kind == tokPunct && tok.text == "(" {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	tok, ok := p.peek()
	if !ok || tok.kind != tokIdent {
		return nil, fmt.Errorf("expected field name, got '%s'", tok.text)
	}
	field := tok.text
	p.pos++

	tok, ok = p.peek()
	if !ok {
		return nil, fmt.Errorf("expected operator after '%s'", field)
	}

	if tok.kind == tokIdent && tok.text == "in" {
		p.pos++
		return p.parseIn(field)
	}

	if tok.kind != tokOp || tok.text == "&&" || tok.text == "||" {
		return nil, fmt.Errorf("expected comparison operator after '%s', got '%s'", field, tok.text)
	}
	op := tok.text
	p.pos++

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	return &compareNode{field: field, op: op, lit: lit}, nil
}

func (p *parser) parseIn(field string) (node, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}

	var set []any
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		set = append(set, lit)

		tok, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("unterminated list after '%s in'", field)
		}
		if tok.text == "," {
			p.pos++
			continue
		}
		break
	}

	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}

	return &inNode{field: field, set: set}, nil
}

func (p *parser) parseLiteral() (any, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("expected a literal value")
	}
	p.pos++

	switch tok.kind {
	case tokString:
		return tok.text, nil
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number '%s' in condition", tok.text)
		}
		return f, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}

	return nil, fmt.Errorf("expected a literal value, got '%s'", tok.text)
}

func (p *parser) expectPunct(text string) error {
	tok, ok := p.peek()
	if !ok || tok.kind != tokPunct || tok.text != text {
		return fmt.Errorf("expected '%s' in condition", text)
	}
	p.pos++
	return nil
}
