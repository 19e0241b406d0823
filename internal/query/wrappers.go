package query

import (
	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// NotQuery excludes documents matching Child, grounded directly on
// original_source/src/whoosh/query/wrappers.py's Not (deliberately not
// a WrappingQuery subclass there, since its matcher negates rather
// than forwards — the same reasoning applies here).
type NotQuery struct {
	Child      Query
	BoostValue float64
}

func NewNot(child Query) Query { return &NotQuery{Child: child, BoostValue: 1} }

func (q *NotQuery) IsLeaf() bool      { return false }
func (q *NotQuery) Field() string     { return "" }
func (q *NotQuery) Boost() float64    { return q.BoostValue }
func (q *NotQuery) Children() []Query { return []Query{q.Child} }

func (q *NotQuery) Apply(fn func(Query) Query) Query {
	return &NotQuery{Child: fn(q.Child), BoostValue: q.BoostValue}
}

func (q *NotQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *NotQuery) Normalize() Query {
	c := q.Child.Normalize()
	if isNull(c) {
		return c
	}
	return &NotQuery{Child: c, BoostValue: q.BoostValue}
}

func (q *NotQuery) Simplify(src TermSource) (Query, error) {
	c, err := q.Child.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &NotQuery{Child: c, BoostValue: q.BoostValue}, nil
}

func (q *NotQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return stats.DocCount(), nil
}

// Matcher builds the child in a non-scoring (boolean) context and
// returns its inverse over the whole corpus. And/Or do not rewrite a
// Not child into an AndNotQuery; they combine this inverse matcher like
// any other child's.
func (q *NotQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	childCtx := *ctx
	childCtx.Scoring = false
	child, err := q.Child.Matcher(&childCtx)
	if err != nil {
		return nil, err
	}
	return matcher.NewInverse(child, ctx.DocCount, ctx.IsDeleted, 1.0), nil
}

// ConstantScoreQuery wraps Child so every match scores Score regardless
// of its natural score, grounded on wrappers.py's ConstantScoreQuery
// (a WrappingQuery subclass there; Go has no class inheritance, so the
// wrapping behavior is duplicated across this file's three wrappers
// rather than factored into a base).
type ConstantScoreQuery struct {
	Child Query
	Score float64
}

func NewConstantScore(child Query, score float64) Query {
	return &ConstantScoreQuery{Child: child, Score: score}
}

func (q *ConstantScoreQuery) IsLeaf() bool      { return false }
func (q *ConstantScoreQuery) Field() string     { return q.Child.Field() }
func (q *ConstantScoreQuery) Boost() float64    { return 1 }
func (q *ConstantScoreQuery) Children() []Query { return []Query{q.Child} }

func (q *ConstantScoreQuery) Apply(fn func(Query) Query) Query {
	return &ConstantScoreQuery{Child: fn(q.Child), Score: q.Score}
}

func (q *ConstantScoreQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *ConstantScoreQuery) Normalize() Query {
	c := q.Child.Normalize()
	if isNull(c) {
		return c
	}
	return &ConstantScoreQuery{Child: c, Score: q.Score}
}

func (q *ConstantScoreQuery) Simplify(src TermSource) (Query, error) {
	c, err := q.Child.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &ConstantScoreQuery{Child: c, Score: q.Score}, nil
}

func (q *ConstantScoreQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Child.EstimateSize(stats)
}

func (q *ConstantScoreQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	m, err := q.Child.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	if m == matcher.Null {
		return m, nil
	}
	return matcher.NewConstantScore(m, q.Score), nil
}

// BoostQuery multiplies Child's score by Factor, grounded on
// wrappers.py's `obj.boost *= factor` field-boosting idiom from
// original_source/tests/test_scoring.py's test_fieldboost.
type BoostQuery struct {
	Child  Query
	Factor float64
}

func NewBoost(child Query, factor float64) Query {
	return &BoostQuery{Child: child, Factor: factor}
}

func (q *BoostQuery) IsLeaf() bool      { return false }
func (q *BoostQuery) Field() string     { return q.Child.Field() }
func (q *BoostQuery) Boost() float64    { return q.Factor }
func (q *BoostQuery) Children() []Query { return []Query{q.Child} }

func (q *BoostQuery) Apply(fn func(Query) Query) Query {
	return &BoostQuery{Child: fn(q.Child), Factor: q.Factor}
}

func (q *BoostQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *BoostQuery) Normalize() Query {
	c := q.Child.Normalize()
	if isNull(c) {
		return c
	}
	if q.Factor == 1 {
		return c
	}
	return &BoostQuery{Child: c, Factor: q.Factor}
}

func (q *BoostQuery) Simplify(src TermSource) (Query, error) {
	c, err := q.Child.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &BoostQuery{Child: c, Factor: q.Factor}, nil
}

func (q *BoostQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Child.EstimateSize(stats)
}

func (q *BoostQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	m, err := q.Child.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	if m == matcher.Null {
		return m, nil
	}
	return matcher.NewWrapping(m, q.Factor), nil
}

// WeightingQuery overrides the Weighting model for Child's subtree,
// grounded directly on wrappers.py's WeightingQuery.
type WeightingQuery struct {
	Child     Query
	Weighting scoring.Weighting
}

func NewWeighting(child Query, w scoring.Weighting) Query {
	return &WeightingQuery{Child: child, Weighting: w}
}

func (q *WeightingQuery) IsLeaf() bool      { return false }
func (q *WeightingQuery) Field() string     { return q.Child.Field() }
func (q *WeightingQuery) Boost() float64    { return 1 }
func (q *WeightingQuery) Children() []Query { return []Query{q.Child} }

func (q *WeightingQuery) Apply(fn func(Query) Query) Query {
	return &WeightingQuery{Child: fn(q.Child), Weighting: q.Weighting}
}

func (q *WeightingQuery) Accept(fn func(Query) Query) Query {
	return fn(q.Apply(func(c Query) Query { return c.Accept(fn) }))
}

func (q *WeightingQuery) Normalize() Query {
	c := q.Child.Normalize()
	if isNull(c) {
		return c
	}
	return &WeightingQuery{Child: c, Weighting: q.Weighting}
}

func (q *WeightingQuery) Simplify(src TermSource) (Query, error) {
	c, err := q.Child.Simplify(src)
	if err != nil {
		return nil, err
	}
	return &WeightingQuery{Child: c, Weighting: q.Weighting}, nil
}

func (q *WeightingQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return q.Child.EstimateSize(stats)
}

// Matcher replaces ctx's Weighting with q.Weighting for Child's
// subtree only, per wrappers.py's `context.set(weighting=...)`.
func (q *WeightingQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	childCtx := *ctx
	childCtx.Weighting = q.Weighting
	return q.Child.Matcher(&childCtx)
}
