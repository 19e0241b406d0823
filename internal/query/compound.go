package query

import (
	"reflect"

	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// equaler is implemented by node types (like *TermQuery) with a
// cheaper-than-reflection equality check; nodes without one fall back
// to reflect.DeepEqual in equalQuery.
type equaler interface {
	Equal(Query) bool
}

func equalQuery(a, b Query) bool {
	if ea, ok := a.(equaler); ok {
		return ea.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// dedupe drops children equal to an earlier child, preserving order,
// per spec.md §4.8's "identical children deduplicated" rule.
func dedupe(children []Query) []Query {
	out := make([]Query, 0, len(children))
	for _, c := range children {
		dup := false
		for _, seen := range out {
			if equalQuery(c, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// AndQuery matches documents satisfying every child, per spec.md
// §4.6's Intersection row and §4.8's And/Or normalization rules.
type AndQuery struct {
	Subqueries []Query
}

// NewAnd builds an AndQuery over children.
func NewAnd(children ...Query) Query { return &AndQuery{Subqueries: children} }

func (q *AndQuery) IsLeaf() bool      { return false }
func (q *AndQuery) Field() string     { return "" }
func (q *AndQuery) Boost() float64    { return 1 }
func (q *AndQuery) Children() []Query { return q.Subqueries }

func (q *AndQuery) Apply(fn func(Query) Query) Query {
	children := make([]Query, len(q.Subqueries))
	for i, c := range q.Subqueries {
		children[i] = fn(c)
	}
	return &AndQuery{Subqueries: children}
}

func (q *AndQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

// Normalize flattens nested Ands, drops a NullQuery child (collapsing
// the whole node to Null, since And requires every child to match),
// dedupes, and collapses a single remaining child to itself.
func (q *AndQuery) Normalize() Query {
	var flat []Query
	for _, c := range q.Subqueries {
		nc := c.Normalize()
		if isNull(nc) {
			return Null
		}
		if inner, ok := nc.(*AndQuery); ok {
			flat = append(flat, inner.Subqueries...)
		} else {
			flat = append(flat, nc)
		}
	}
	flat = dedupe(flat)
	switch len(flat) {
	case 0:
		return Every
	case 1:
		return flat[0]
	default:
		return &AndQuery{Subqueries: flat}
	}
}

func (q *AndQuery) Simplify(src TermSource) (Query, error) {
	children := make([]Query, len(q.Subqueries))
	for i, c := range q.Subqueries {
		sc, err := c.Simplify(src)
		if err != nil {
			return nil, err
		}
		children[i] = sc
	}
	return (&AndQuery{Subqueries: children}).Normalize(), nil
}

// EstimateSize returns the smallest child's estimate, since And can
// never match more documents than its most selective child.
func (q *AndQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	if len(q.Subqueries) == 0 {
		return 0, nil
	}
	min, err := q.Subqueries[0].EstimateSize(stats)
	if err != nil {
		return 0, err
	}
	for _, c := range q.Subqueries[1:] {
		n, err := c.EstimateSize(stats)
		if err != nil {
			return 0, err
		}
		if n < min {
			min = n
		}
	}
	return min, nil
}

func (q *AndQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	ms := make([]matcher.Matcher, len(q.Subqueries))
	for i, c := range q.Subqueries {
		m, err := c.Matcher(ctx)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	return matcher.NewIntersection(ms...), nil
}

// OrQuery matches documents satisfying any child, per spec.md §4.6's
// Union row.
type OrQuery struct {
	Subqueries []Query
}

// NewOr builds an OrQuery over children.
func NewOr(children ...Query) Query { return &OrQuery{Subqueries: children} }

func (q *OrQuery) IsLeaf() bool      { return false }
func (q *OrQuery) Field() string     { return "" }
func (q *OrQuery) Boost() float64    { return 1 }
func (q *OrQuery) Children() []Query { return q.Subqueries }

func (q *OrQuery) Apply(fn func(Query) Query) Query {
	children := make([]Query, len(q.Subqueries))
	for i, c := range q.Subqueries {
		children[i] = fn(c)
	}
	return &OrQuery{Subqueries: children}
}

func (q *OrQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

// Normalize flattens nested Ors, drops NullQuery children (Or matches
// if ANY child matches, so a null child simply contributes nothing),
// merges overlapping TermRanges, dedupes, and collapses a lone child.
func (q *OrQuery) Normalize() Query {
	var flat []Query
	for _, c := range q.Subqueries {
		nc := c.Normalize()
		if isNull(nc) {
			continue
		}
		if inner, ok := nc.(*OrQuery); ok {
			flat = append(flat, inner.Subqueries...)
		} else {
			flat = append(flat, nc)
		}
	}
	flat = mergeRanges(flat)
	flat = dedupe(flat)
	switch len(flat) {
	case 0:
		return Null
	case 1:
		return flat[0]
	default:
		return &OrQuery{Subqueries: flat}
	}
}

func (q *OrQuery) Simplify(src TermSource) (Query, error) {
	children := make([]Query, len(q.Subqueries))
	for i, c := range q.Subqueries {
		sc, err := c.Simplify(src)
		if err != nil {
			return nil, err
		}
		children[i] = sc
	}
	return (&OrQuery{Subqueries: children}).Normalize(), nil
}

// EstimateSize sums children's estimates, the loosest safe upper bound
// for a union (the true match count can only be smaller, if children
// overlap).
func (q *OrQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	var total uint64
	for _, c := range q.Subqueries {
		n, err := c.EstimateSize(stats)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (q *OrQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	ms := make([]matcher.Matcher, len(q.Subqueries))
	for i, c := range q.Subqueries {
		m, err := c.Matcher(ctx)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	return matcher.NewUnion(ms...), nil
}
