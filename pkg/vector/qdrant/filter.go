package qdrant

import (
	"fmt"
	"math"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/filter"
)

// translateWhere converts a where clause into a Qdrant filter over the
// metadata payload. An empty clause yields a nil filter.
func translateWhere(where vector.Where) (*qc.Filter, error) {
	expr, err := filter.Parse(where)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, nil
	}

	cond, err := translateExpr(expr)
	if err != nil {
		return nil, err
	}
	return &qc.Filter{Must: []*qc.Condition{cond}}, nil
}

func translateExpr(expr filter.Expr) (*qc.Condition, error) {
	switch e := expr.(type) {
	case filter.And:
		children, err := translateAll(e)
		if err != nil {
			return nil, err
		}
		return qc.NewFilterAsCondition(&qc.Filter{Must: children}), nil
	case filter.Or:
		children, err := translateAll(e)
		if err != nil {
			return nil, err
		}
		return qc.NewFilterAsCondition(&qc.Filter{Should: children}), nil
	case filter.Cond:
		return translateCond(e)
	default:
		return nil, fmt.Errorf("%w: unsupported expression %T", vector.ErrInvalidFilter, expr)
	}
}

func translateAll(exprs []filter.Expr) ([]*qc.Condition, error) {
	out := make([]*qc.Condition, 0, len(exprs))
	for _, child := range exprs {
		cond, err := translateExpr(child)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func translateCond(c filter.Cond) (*qc.Condition, error) {
	key := payloadMetadata + "." + c.Field

	switch c.Op {
	case filter.OpEq:
		return matchValue(key, c.Value)
	case filter.OpNe:
		eq, err := matchValue(key, c.Value)
		if err != nil {
			return nil, err
		}
		// a missing field never matches, mirroring the in-process evaluator
		return qc.NewFilterAsCondition(&qc.Filter{
			MustNot: []*qc.Condition{eq, qc.NewIsEmpty(key)},
		}), nil
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		f, ok := filter.Number(c.Value)
		if !ok {
			return nil, fmt.Errorf("%w: field %q: %s needs a number", vector.ErrInvalidFilter, c.Field, c.Op)
		}
		r := &qc.Range{}
		switch c.Op {
		case filter.OpGt:
			r.Gt = &f
		case filter.OpGte:
			r.Gte = &f
		case filter.OpLt:
			r.Lt = &f
		default:
			r.Lte = &f
		}
		return qc.NewRange(key, r), nil
	case filter.OpIn, filter.OpNin:
		list, _ := c.Value.([]any)
		options := make([]*qc.Condition, 0, len(list))
		for _, item := range list {
			m, err := matchValue(key, item)
			if err != nil {
				return nil, err
			}
			options = append(options, m)
		}

		in := qc.NewFilterAsCondition(&qc.Filter{Should: options})
		if c.Op == filter.OpIn {
			return in, nil
		}
		return qc.NewFilterAsCondition(&qc.Filter{
			MustNot: []*qc.Condition{in, qc.NewIsEmpty(key)},
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", vector.ErrInvalidFilter, c.Op)
	}
}

// matchValue builds an equality condition. Whole numbers use integer
// matching; fractional numbers match through a closed range.
func matchValue(key string, value any) (*qc.Condition, error) {
	switch v := value.(type) {
	case string:
		return qc.NewMatch(key, v), nil
	case bool:
		return qc.NewMatchBool(key, v), nil
	}

	f, ok := filter.Number(value)
	if !ok {
		return nil, fmt.Errorf("%w: field %q: unsupported value %v", vector.ErrInvalidFilter, key, value)
	}
	if f == math.Trunc(f) {
		return qc.NewMatchInt(key, int64(f)), nil
	}
	return qc.NewRange(key, &qc.Range{Gte: &f, Lte: &f}), nil
}
