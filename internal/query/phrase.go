package query

import (
	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// PhraseQuery matches documents where Terms appear, in order, within
// Slop positions of each other, per spec.md §4.6's Phrase/Near row.
// Simplify is identity here rather than lowering to a separate SpanNear
// node (as spec.md §4.8 describes for the general case): Matcher
// already builds the slop-aware matcher.PhraseMatcher directly, so no
// intermediate span node is needed to reach it.
type PhraseQuery struct {
	FieldName  string
	Terms      [][]byte
	Slop       int
	BoostValue float64
}

func NewPhrase(field string, terms [][]byte, slop int) *PhraseQuery {
	return &PhraseQuery{FieldName: field, Terms: terms, Slop: slop, BoostValue: 1}
}

func (q *PhraseQuery) IsLeaf() bool      { return true }
func (q *PhraseQuery) Field() string     { return q.FieldName }
func (q *PhraseQuery) Boost() float64    { return q.BoostValue }
func (q *PhraseQuery) Children() []Query { return nil }
func (q *PhraseQuery) Apply(func(Query) Query) Query     { return q }
func (q *PhraseQuery) Accept(fn func(Query) Query) Query { return fn(q) }
func (q *PhraseQuery) Normalize() Query                  { return q }
func (q *PhraseQuery) Simplify(TermSource) (Query, error) { return q, nil }

func (q *PhraseQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	if len(q.Terms) == 0 {
		return 0, nil
	}
	// The rarest term in the phrase bounds how many documents can
	// possibly contain the whole phrase.
	min, err := stats.DocFrequency(q.FieldName, q.Terms[0])
	if err != nil {
		return 0, err
	}
	for _, t := range q.Terms[1:] {
		df, err := stats.DocFrequency(q.FieldName, t)
		if err != nil {
			return 0, err
		}
		if df < min {
			min = df
		}
	}
	return min, nil
}

func (q *PhraseQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	if len(q.Terms) == 0 {
		return matcher.Null, nil
	}
	ms := make([]matcher.Matcher, len(q.Terms))
	offsets := make([]int, len(q.Terms))
	for i, t := range q.Terms {
		m, err := ctx.Source.TermMatcher(ctx, q.FieldName, t, 1)
		if err != nil {
			return nil, err
		}
		if m == matcher.Null {
			return matcher.Null, nil
		}
		ms[i] = m
		offsets[i] = i
	}
	phrase := matcher.NewPhrase(ms, offsets, q.Slop)
	if q.BoostValue != 1 {
		return matcher.NewWrapping(phrase, q.BoostValue), nil
	}
	return phrase, nil
}
