// Package filter parses Chroma-style where clauses into an expression tree
// and evaluates them against document metadata. Drivers without native
// metadata filtering use Compile; drivers that translate filters into their
// backend's own query language walk the tree returned by Parse.
package filter

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/papercomputeco/stacks/pkg/vector"
)

// Op is a field comparison operator.
type Op string

const (
	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
	OpIn  Op = "$in"
	OpNin Op = "$nin"
)

const (
	keyAnd = "$and"
	keyOr  = "$or"
)

// Expr is a node in a parsed filter.
type Expr interface {
	isExpr()
}

// And matches when every child matches.
type And []Expr

// Or matches when at least one child matches.
type Or []Expr

// Cond compares one metadata field against a value. For OpIn and OpNin,
// Value is a []any.
type Cond struct {
	Field string
	Op    Op
	Value any
}

func (And) isExpr()  {}
func (Or) isExpr()   {}
func (Cond) isExpr() {}

// Parse converts a where clause into an expression. An empty clause parses to
// nil, which matches everything.
func Parse(where vector.Where) (Expr, error) {
	if len(where) == 0 {
		return nil, nil
	}
	return parseMap(where)
}

// Compile parses where and returns a predicate over metadata.
func Compile(where vector.Where) (func(map[string]any) bool, error) {
	expr, err := Parse(where)
	if err != nil {
		return nil, err
	}
	return func(metadata map[string]any) bool {
		return Match(expr, metadata)
	}, nil
}

// Match evaluates expr against metadata. A nil expr matches everything.
func Match(expr Expr, metadata map[string]any) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case And:
		for _, child := range e {
			if !Match(child, metadata) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range e {
			if Match(child, metadata) {
				return true
			}
		}
		return false
	case Cond:
		actual, ok := metadata[e.Field]
		if !ok {
			return false
		}
		return compare(e.Op, actual, e.Value)
	default:
		return false
	}
}

func parseMap(m map[string]any) (Expr, error) {
	// sorted keys keep the expression tree deterministic
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exprs := make(And, 0, len(keys))
	for _, key := range keys {
		expr, err := parseEntry(key, m[key])
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}

	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return exprs, nil
}

func parseEntry(key string, value any) (Expr, error) {
	switch key {
	case keyAnd, keyOr:
		clauses, err := asClauseList(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", vector.ErrInvalidFilter, key, err)
		}

		children := make([]Expr, 0, len(clauses))
		for _, clause := range clauses {
			child, err := parseMap(clause)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}

		if key == keyAnd {
			return And(children), nil
		}
		return Or(children), nil
	}

	if len(key) > 0 && key[0] == '$' {
		return nil, fmt.Errorf("%w: unknown logical operator %q", vector.ErrInvalidFilter, key)
	}

	opMap, ok := asMap(value)
	if !ok {
		if !isScalar(value) {
			return nil, fmt.Errorf("%w: field %q: unsupported value %v", vector.ErrInvalidFilter, key, value)
		}
		return Cond{Field: key, Op: OpEq, Value: value}, nil
	}

	if len(opMap) != 1 {
		return nil, fmt.Errorf("%w: field %q: expected exactly one operator", vector.ErrInvalidFilter, key)
	}

	for rawOp, operand := range opMap {
		op := Op(rawOp)
		switch op {
		case OpEq, OpNe:
			if !isScalar(operand) {
				return nil, fmt.Errorf("%w: field %q: %s needs a scalar", vector.ErrInvalidFilter, key, op)
			}
		case OpGt, OpGte, OpLt, OpLte:
			if _, ok := Number(operand); !ok {
				return nil, fmt.Errorf("%w: field %q: %s needs a number", vector.ErrInvalidFilter, key, op)
			}
		case OpIn, OpNin:
			list, ok := asList(operand)
			if !ok {
				return nil, fmt.Errorf("%w: field %q: %s needs a list", vector.ErrInvalidFilter, key, op)
			}
			operand = list
		default:
			return nil, fmt.Errorf("%w: field %q: unknown operator %q", vector.ErrInvalidFilter, key, rawOp)
		}
		return Cond{Field: key, Op: op, Value: operand}, nil
	}

	// unreachable: opMap has exactly one entry
	return nil, nil
}

func compare(op Op, actual, expected any) bool {
	switch op {
	case OpEq:
		return equal(actual, expected)
	case OpNe:
		return !equal(actual, expected)
	case OpGt, OpGte, OpLt, OpLte:
		a, ok := Number(actual)
		if !ok {
			return false
		}
		b, _ := Number(expected)
		switch op {
		case OpGt:
			return a > b
		case OpGte:
			return a >= b
		case OpLt:
			return a < b
		default:
			return a <= b
		}
	case OpIn, OpNin:
		list, _ := expected.([]any)
		found := false
		for _, item := range list {
			if equal(actual, item) {
				found = true
				break
			}
		}
		if op == OpIn {
			return found
		}
		return !found
	default:
		return false
	}
}

func equal(a, b any) bool {
	if fa, ok := Number(a); ok {
		fb, ok := Number(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	default:
		return false
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	default:
		_, ok := Number(v)
		return ok
	}
}

// Number converts any Go numeric type, or a json.Number, to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case vector.Where:
		return m, true
	default:
		return nil, false
	}
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

func asClauseList(v any) ([]map[string]any, error) {
	var items []any
	switch l := v.(type) {
	case []any:
		items = l
	case []map[string]any:
		out := make([]map[string]any, len(l))
		copy(out, l)
		return out, nil
	case []vector.Where:
		out := make([]map[string]any, len(l))
		for i, w := range l {
			out[i] = w
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of clauses, got %T", v)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("expected a clause object, got %T", item)
		}
		out = append(out, m)
	}
	return out, nil
}
