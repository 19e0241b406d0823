package query

import (
	"fmt"

	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// asSpanSource adapts a built matcher.Matcher into a matcher.SpanSource,
// the requirement every span query's children must satisfy. A bare
// *matcher.TermMatcher is wrapped via matcher.NewTermSpanSource; a
// matcher already implementing SpanSource (another span query's
// result) passes through unchanged.
func asSpanSource(m matcher.Matcher) (matcher.SpanSource, error) {
	if ss, ok := m.(matcher.SpanSource); ok {
		return ss, nil
	}
	if tm, ok := m.(*matcher.TermMatcher); ok {
		return matcher.NewTermSpanSource(tm), nil
	}
	return nil, fmt.Errorf("query: %T does not produce position spans", m)
}

// SpanFirstQuery matches documents where one of Child's spans starts at
// or before Limit, per spec.md §4.6's SpanFirst row.
type SpanFirstQuery struct {
	Child Query
	Limit int
}

func NewSpanFirst(child Query, limit int) Query { return &SpanFirstQuery{Child: child, Limit: limit} }

func (q *SpanFirstQuery) IsLeaf() bool      { return false }
func (q *SpanFirstQuery) Field() string     { return q.Child.Field() }
func (q *SpanFirstQuery) Boost() float64    { return 1 }
func (q *SpanFirstQuery) Children() []Query { return []Query{q.Child} }

func (q *SpanFirstQuery) Apply(fn func(Query) Query) Query {
	return &SpanFirstQuery{Child: fn(q.Child), Limit: q.Limit}
}

func (q *SpanFirstQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *SpanFirstQuery) Normalize() Query {
	c := q.Child.Normalize()
	if isNull(c) {
		return c
	}
	return &SpanFirstQuery{Child: c, Limit: q.Limit}
}

func (q *SpanFirstQuery) Simplify(src TermSource) (Query, error) {
	c, err := q.Child.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &SpanFirstQuery{Child: c, Limit: q.Limit}, nil
}

func (q *SpanFirstQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Child.EstimateSize(stats)
}

func (q *SpanFirstQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	m, err := q.Child.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	ss, err := asSpanSource(m)
	if err != nil {
		return nil, err
	}
	return matcher.NewSpanFirst(ss, q.Limit), nil
}

// SpanNotQuery matches Include's docs minus spans overlapping Exclude's,
// per spec.md §4.6's SpanNot row.
type SpanNotQuery struct {
	Include, Exclude Query
}

func NewSpanNot(include, exclude Query) Query { return &SpanNotQuery{Include: include, Exclude: exclude} }

func (q *SpanNotQuery) IsLeaf() bool      { return false }
func (q *SpanNotQuery) Field() string     { return q.Include.Field() }
func (q *SpanNotQuery) Boost() float64    { return 1 }
func (q *SpanNotQuery) Children() []Query { return []Query{q.Include, q.Exclude} }

func (q *SpanNotQuery) Apply(fn func(Query) Query) Query {
	return &SpanNotQuery{Include: fn(q.Include), Exclude: fn(q.Exclude)}
}

func (q *SpanNotQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *SpanNotQuery) Normalize() Query {
	inc := q.Include.Normalize()
	exc := q.Exclude.Normalize()
	if isNull(inc) {
		return Null
	}
	if isNull(exc) {
		return inc
	}
	return &SpanNotQuery{Include: inc, Exclude: exc}
}

func (q *SpanNotQuery) Simplify(src TermSource) (Query, error) {
	inc, err := q.Include.Simplify(src)
	if err != nil {
		return nil, err
	}
	exc, err := q.Exclude.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &SpanNotQuery{Include: inc, Exclude: exc}, nil
}

func (q *SpanNotQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Include.EstimateSize(stats)
}

func (q *SpanNotQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	inc, err := q.Include.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	incSS, err := asSpanSource(inc)
	if err != nil {
		return nil, err
	}
	exc, err := q.Exclude.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	excSS, err := asSpanSource(exc)
	if err != nil {
		return nil, err
	}
	return matcher.NewSpanNot(incSS, excSS), nil
}

// SpanContainsQuery matches documents where one of Outer's spans
// contains one of Inner's, per spec.md §4.6's SpanContains row.
type SpanContainsQuery struct {
	Outer, Inner Query
}

func NewSpanContains(outer, inner Query) Query { return &SpanContainsQuery{Outer: outer, Inner: inner} }

func (q *SpanContainsQuery) IsLeaf() bool      { return false }
func (q *SpanContainsQuery) Field() string     { return q.Outer.Field() }
func (q *SpanContainsQuery) Boost() float64    { return 1 }
func (q *SpanContainsQuery) Children() []Query { return []Query{q.Outer, q.Inner} }

func (q *SpanContainsQuery) Apply(fn func(Query) Query) Query {
	return &SpanContainsQuery{Outer: fn(q.Outer), Inner: fn(q.Inner)}
}

func (q *SpanContainsQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *SpanContainsQuery) Normalize() Query {
	outer := q.Outer.Normalize()
	inner := q.Inner.Normalize()
	if isNull(outer) || isNull(inner) {
		return Null
	}
	return &SpanContainsQuery{Outer: outer, Inner: inner}
}

func (q *SpanContainsQuery) Simplify(src TermSource) (Query, error) {
	outer, err := q.Outer.Simplify(src)
	if err != nil {
		return nil, err
	}
	inner, err := q.Inner.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &SpanContainsQuery{Outer: outer, Inner: inner}, nil
}

func (q *SpanContainsQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Outer.EstimateSize(stats)
}

func (q *SpanContainsQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	outer, err := q.Outer.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	outerSS, err := asSpanSource(outer)
	if err != nil {
		return nil, err
	}
	inner, err := q.Inner.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	innerSS, err := asSpanSource(inner)
	if err != nil {
		return nil, err
	}
	return matcher.NewSpanContains(outerSS, innerSS), nil
}
