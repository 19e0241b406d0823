package query

import (
	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// AndNotQuery matches Positive's docs minus Negative's, per spec.md
// §4.6's AndNot row.
type AndNotQuery struct {
	Positive, Negative Query
}

func NewAndNot(pos, neg Query) Query { return &AndNotQuery{Positive: pos, Negative: neg} }

func (q *AndNotQuery) IsLeaf() bool      { return false }
func (q *AndNotQuery) Field() string     { return q.Positive.Field() }
func (q *AndNotQuery) Boost() float64    { return 1 }
func (q *AndNotQuery) Children() []Query { return []Query{q.Positive, q.Negative} }

func (q *AndNotQuery) Apply(fn func(Query) Query) Query {
	return &AndNotQuery{Positive: fn(q.Positive), Negative: fn(q.Negative)}
}

func (q *AndNotQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *AndNotQuery) Normalize() Query {
	pos := q.Positive.Normalize()
	neg := q.Negative.Normalize()
	if isNull(pos) {
		return Null
	}
	if isNull(neg) {
		return pos
	}
	return &AndNotQuery{Positive: pos, Negative: neg}
}

func (q *AndNotQuery) Simplify(src TermSource) (Query, error) {
	pos, err := q.Positive.Simplify(src)
	if err != nil {
		return nil, err
	}
	neg, err := q.Negative.Simplify(src)
	if err != nil {
		return nil, err
	}
	return (&AndNotQuery{Positive: pos, Negative: neg}).Normalize(), nil
}

func (q *AndNotQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Positive.EstimateSize(stats)
}

func (q *AndNotQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	pos, err := q.Positive.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	filterCtx := *ctx
	filterCtx.Scoring = false
	neg, err := q.Negative.Matcher(&filterCtx)
	if err != nil {
		return nil, err
	}
	return matcher.NewAndNot(pos, neg), nil
}

// AndMaybeQuery matches Required's docs, adding Optional's score when
// it also matches, per spec.md §4.6's AndMaybe row.
type AndMaybeQuery struct {
	Required, Optional Query
}

func NewAndMaybe(req, opt Query) Query { return &AndMaybeQuery{Required: req, Optional: opt} }

func (q *AndMaybeQuery) IsLeaf() bool      { return false }
func (q *AndMaybeQuery) Field() string     { return q.Required.Field() }
func (q *AndMaybeQuery) Boost() float64    { return 1 }
func (q *AndMaybeQuery) Children() []Query { return []Query{q.Required, q.Optional} }

func (q *AndMaybeQuery) Apply(fn func(Query) Query) Query {
	return &AndMaybeQuery{Required: fn(q.Required), Optional: fn(q.Optional)}
}

func (q *AndMaybeQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *AndMaybeQuery) Normalize() Query {
	req := q.Required.Normalize()
	opt := q.Optional.Normalize()
	if isNull(req) {
		return Null
	}
	if isNull(opt) {
		return req
	}
	return &AndMaybeQuery{Required: req, Optional: opt}
}

func (q *AndMaybeQuery) Simplify(src TermSource) (Query, error) {
	req, err := q.Required.Simplify(src)
	if err != nil {
		return nil, err
	}
	opt, err := q.Optional.Simplify(src)
	if err != nil {
		return nil, err
	}
	return (&AndMaybeQuery{Required: req, Optional: opt}).Normalize(), nil
}

func (q *AndMaybeQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Required.EstimateSize(stats)
}

func (q *AndMaybeQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	req, err := q.Required.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	opt, err := q.Optional.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.NewAndMaybe(req, opt), nil
}

// RequireQuery matches A intersected with B but scores using only A,
// per spec.md §4.6's Require row.
type RequireQuery struct {
	A, B Query
}

func NewRequire(a, b Query) Query { return &RequireQuery{A: a, B: b} }

func (q *RequireQuery) IsLeaf() bool      { return false }
func (q *RequireQuery) Field() string     { return q.A.Field() }
func (q *RequireQuery) Boost() float64    { return 1 }
func (q *RequireQuery) Children() []Query { return []Query{q.A, q.B} }

func (q *RequireQuery) Apply(fn func(Query) Query) Query {
	return &RequireQuery{A: fn(q.A), B: fn(q.B)}
}

func (q *RequireQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *RequireQuery) Normalize() Query {
	a := q.A.Normalize()
	b := q.B.Normalize()
	if isNull(a) || isNull(b) {
		return Null
	}
	return &RequireQuery{A: a, B: b}
}

func (q *RequireQuery) Simplify(src TermSource) (Query, error) {
	a, err := q.A.Simplify(src)
	if err != nil {
		return nil, err
	}
	b, err := q.B.Simplify(src)
	if err != nil {
		return nil, err
	}
	return (&RequireQuery{A: a, B: b}).Normalize(), nil
}

func (q *RequireQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	aSize, err := q.A.EstimateSize(stats)
	if err != nil {
		return 0, err
	}
	bSize, err := q.B.EstimateSize(stats)
	if err != nil {
		return 0, err
	}
	if aSize < bSize {
		return aSize, nil
	}
	return bSize, nil
}

func (q *RequireQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	a, err := q.A.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	b, err := q.B.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.NewRequire(a, b), nil
}

// DisjunctionMaxQuery scores each doc by its best-matching child plus a
// tiebreak fraction of the rest, per spec.md §4.6's DisjunctionMax row
// (typically used by a multi-field parser to avoid double-counting a
// term that appears in several fields of the same conceptual query).
type DisjunctionMaxQuery struct {
	Subqueries []Query
	Tiebreak   float64
}

func NewDisjunctionMax(tiebreak float64, children ...Query) Query {
	return &DisjunctionMaxQuery{Subqueries: children, Tiebreak: tiebreak}
}

func (q *DisjunctionMaxQuery) IsLeaf() bool      { return false }
func (q *DisjunctionMaxQuery) Field() string     { return "" }
func (q *DisjunctionMaxQuery) Boost() float64    { return 1 }
func (q *DisjunctionMaxQuery) Children() []Query { return q.Subqueries }

func (q *DisjunctionMaxQuery) Apply(fn func(Query) Query) Query {
	children := make([]Query, len(q.Subqueries))
	for i, c := range q.Subqueries {
		children[i] = fn(c)
	}
	return &DisjunctionMaxQuery{Subqueries: children, Tiebreak: q.Tiebreak}
}

func (q *DisjunctionMaxQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *DisjunctionMaxQuery) Normalize() Query {
	var flat []Query
	for _, c := range q.Subqueries {
		nc := c.Normalize()
		if !isNull(nc) {
			flat = append(flat, nc)
		}
	}
	flat = dedupe(flat)
	switch len(flat) {
	case 0:
		return Null
	case 1:
		return flat[0]
	default:
		return &DisjunctionMaxQuery{Subqueries: flat, Tiebreak: q.Tiebreak}
	}
}

func (q *DisjunctionMaxQuery) Simplify(src TermSource) (Query, error) {
	children := make([]Query, len(q.Subqueries))
	for i, c := range q.Subqueries {
		sc, err := c.Simplify(src)
		if err != nil {
			return nil, err
		}
		children[i] = sc
	}
	return (&DisjunctionMaxQuery{Subqueries: children, Tiebreak: q.Tiebreak}).Normalize(), nil
}

func (q *DisjunctionMaxQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
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

func (q *DisjunctionMaxQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	ms := make([]matcher.Matcher, len(q.Subqueries))
	for i, c := range q.Subqueries {
		m, err := c.Matcher(ctx)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	return matcher.NewDisjunctionMax(ms, q.Tiebreak), nil
}
