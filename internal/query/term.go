package query

import (
	"bytes"

	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// TermQuery matches documents containing Term in FieldName, spec.md
// §4.6's Term matcher row's query-level counterpart.
type TermQuery struct {
	FieldName  string
	Term       []byte
	BoostValue float64
}

// NewTerm builds a TermQuery with the default boost of 1.0.
func NewTerm(field string, term []byte) *TermQuery {
	return &TermQuery{FieldName: field, Term: term, BoostValue: 1}
}

func (q *TermQuery) IsLeaf() bool      { return true }
func (q *TermQuery) Field() string     { return q.FieldName }
func (q *TermQuery) Boost() float64    { return q.BoostValue }
func (q *TermQuery) Children() []Query { return nil }

func (q *TermQuery) Apply(func(Query) Query) Query { return q }

func (q *TermQuery) Accept(fn func(Query) Query) Query { return fn(q) }

func (q *TermQuery) Normalize() Query { return q }

func (q *TermQuery) Simplify(TermSource) (Query, error) { return q, nil }

func (q *TermQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return stats.DocFrequency(q.FieldName, q.Term)
}

func (q *TermQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	m, err := ctx.Source.TermMatcher(ctx, q.FieldName, q.Term, 1)
	if err != nil {
		return nil, err
	}
	if q.BoostValue != 1 {
		return matcher.NewWrapping(m, q.BoostValue), nil
	}
	return m, nil
}

// Equal reports whether other is a TermQuery with the same field, term
// and boost,
// the identity normalize's dedup pass checks compounds' children with.
func (q *TermQuery) Equal(other Query) bool {
	o, ok := other.(*TermQuery)
	return ok && o.FieldName == q.FieldName && bytes.Equal(o.Term, q.Term) && o.BoostValue == q.BoostValue
}
