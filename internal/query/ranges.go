package query

import (
	"bytes"

	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/scoring"
)

// TermRangeQuery matches documents whose field's indexed term falls
// within [Start, End] (numeric/datetime fields reach this through the
// sortable-bytes encoding their single indexed term already uses, so
// NewNumericRange in numeric.go just computes the byte bounds for the
// same node). A nil Start or End is open-ended on
// that side.
type TermRangeQuery struct {
	FieldName            string
	Start, End           []byte
	StartExcl, EndExcl    bool
	ConstantScoreValue   bool
	BoostValue           float64
}

// NewTermRange builds an inclusive-by-default TermRangeQuery.
func NewTermRange(field string, start, end []byte, startExcl, endExcl bool) *TermRangeQuery {
	return &TermRangeQuery{FieldName: field, Start: start, End: end, StartExcl: startExcl, EndExcl: endExcl, BoostValue: 1}
}

func (q *TermRangeQuery) IsLeaf() bool      { return true }
func (q *TermRangeQuery) Field() string     { return q.FieldName }
func (q *TermRangeQuery) Boost() float64    { return q.BoostValue }
func (q *TermRangeQuery) Children() []Query { return nil }
func (q *TermRangeQuery) Apply(func(Query) Query) Query     { return q }
func (q *TermRangeQuery) Accept(fn func(Query) Query) Query { return fn(q) }
func (q *TermRangeQuery) Normalize() Query                  { return q }
func (q *TermRangeQuery) Simplify(TermSource) (Query, error) { return q, nil }

func (q *TermRangeQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return stats.DocCount(), nil
}

func (q *TermRangeQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	terms, err := ctx.Source.ExpandRange(q.FieldName, q.Start, q.End, q.StartExcl, q.EndExcl)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return matcher.Null, nil
	}
	ms := make([]matcher.Matcher, len(terms))
	for i, t := range terms {
		m, err := ctx.Source.TermMatcher(ctx, q.FieldName, t, 1)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	var m matcher.Matcher = matcher.NewUnion(ms...)
	if q.ConstantScoreValue {
		m = matcher.NewConstantScore(m, 1.0)
	}
	if q.BoostValue != 1 {
		m = matcher.NewWrapping(m, q.BoostValue)
	}
	return m, nil
}

// rangesOverlap reports whether two possibly-open-ended byte ranges
// intersect or touch, treating a nil bound as unbounded. Exclusivity
// at the touching edge is ignored for the purpose of deciding whether
// to merge — spec.md §4.8 only requires overlapping ranges to merge,
// not an exact boundary-exclusive union.
func rangesOverlap(aStart, aEnd, bStart, bEnd []byte) bool {
	if aEnd != nil && bStart != nil && bytes.Compare(aEnd, bStart) < 0 {
		return false
	}
	if bEnd != nil && aStart != nil && bytes.Compare(bEnd, aStart) < 0 {
		return false
	}
	return true
}

func minBound(a, b []byte) []byte {
	if a == nil || b == nil {
		return nil
	}
	if bytes.Compare(a, b) <= 0 {
		return a
	}
	return b
}

func maxBound(a, b []byte) []byte {
	if a == nil || b == nil {
		return nil
	}
	if bytes.Compare(a, b) >= 0 {
		return a
	}
	return b
}

// mergeRanges merges overlapping same-field TermRangeQuery children of
// an Or, per spec.md §4.8's "TermRange ∪ TermRange overlapping →
// merged" rule. Non-range children pass through untouched.
func mergeRanges(children []Query) []Query {
	out := make([]Query, 0, len(children))
	for _, c := range children {
		tr, ok := c.(*TermRangeQuery)
		if !ok {
			out = append(out, c)
			continue
		}
		merged := false
		for i, existing := range out {
			er, ok := existing.(*TermRangeQuery)
			if !ok || er.FieldName != tr.FieldName {
				continue
			}
			if !rangesOverlap(er.Start, er.End, tr.Start, tr.End) {
				continue
			}
			newStart := minBound(er.Start, tr.Start)
			newEnd := maxBound(er.End, tr.End)
			startExcl := er.StartExcl && tr.StartExcl
			endExcl := er.EndExcl && tr.EndExcl
			out[i] = NewTermRange(tr.FieldName, newStart, newEnd, startExcl, endExcl)
			merged = true
			break
		}
		if !merged {
			out = append(out, tr)
		}
	}
	return out
}

// PrefixQuery matches documents whose field has an indexed term
// beginning with Prefix, lowered to an Or of TermQuery via the term
// dictionary's prefix iteration in Simplify, per spec.md §4.8's
// wildcard/prefix lowering rule.
type PrefixQuery struct {
	FieldName  string
	Prefix     []byte
	BoostValue float64
}

func NewPrefix(field string, prefix []byte) *PrefixQuery {
	return &PrefixQuery{FieldName: field, Prefix: prefix, BoostValue: 1}
}

func (q *PrefixQuery) IsLeaf() bool      { return true }
func (q *PrefixQuery) Field() string     { return q.FieldName }
func (q *PrefixQuery) Boost() float64    { return q.BoostValue }
func (q *PrefixQuery) Children() []Query { return nil }
func (q *PrefixQuery) Apply(func(Query) Query) Query     { return q }
func (q *PrefixQuery) Accept(fn func(Query) Query) Query { return fn(q) }
func (q *PrefixQuery) Normalize() Query                  { return q }

func (q *PrefixQuery) Simplify(src TermSource) (Query, error) {
	terms, err := src.ExpandPrefix(q.FieldName, q.Prefix)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return Null, nil
	}
	children := make([]Query, len(terms))
	for i, t := range terms {
		tq := NewTerm(q.FieldName, t)
		tq.BoostValue = q.BoostValue
		children[i] = tq
	}
	return &OrQuery{Subqueries: children}, nil
}

func (q *PrefixQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return stats.DocCount(), nil
}

// Matcher requires the query to have gone through Simplify first (a
// bare PrefixQuery has no term to hand a TermSource without expanding
// the dictionary, which Simplify already does).
func (q *PrefixQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	simplified, err := q.Simplify(ctx.Source)
	if err != nil {
		return nil, err
	}
	return simplified.Matcher(ctx)
}

// WildcardQuery matches documents whose field has an indexed term
// matching a glob-style pattern (`*` any run, `?` one character),
// lowered the same way as PrefixQuery but scanning the whole
// dictionary rather than one prefix region (a bare wildcard can start
// with `*` or `?`).
type WildcardQuery struct {
	FieldName  string
	Pattern    string
	BoostValue float64
}

func NewWildcard(field, pattern string) *WildcardQuery {
	return &WildcardQuery{FieldName: field, Pattern: pattern, BoostValue: 1}
}

func (q *WildcardQuery) IsLeaf() bool      { return true }
func (q *WildcardQuery) Field() string     { return q.FieldName }
func (q *WildcardQuery) Boost() float64    { return q.BoostValue }
func (q *WildcardQuery) Children() []Query { return nil }
func (q *WildcardQuery) Apply(func(Query) Query) Query     { return q }
func (q *WildcardQuery) Accept(fn func(Query) Query) Query { return fn(q) }
func (q *WildcardQuery) Normalize() Query                  { return q }

// literalPrefix returns the pattern's run of literal characters before
// its first glob metacharacter, letting Simplify narrow the dictionary
// scan to that prefix region rather than a full-dictionary walk.
func literalPrefix(pattern string) string {
	for i, r := range pattern {
		if r == '*' || r == '?' {
			return pattern[:i]
		}
	}
	return pattern
}

func (q *WildcardQuery) Simplify(src TermSource) (Query, error) {
	prefix := literalPrefix(q.Pattern)
	candidates, err := src.ExpandPrefix(q.FieldName, []byte(prefix))
	if err != nil {
		return nil, err
	}
	var children []Query
	for _, t := range candidates {
		if globMatch(q.Pattern, string(t)) {
			tq := NewTerm(q.FieldName, t)
			tq.BoostValue = q.BoostValue
			children = append(children, tq)
		}
	}
	if len(children) == 0 {
		return Null, nil
	}
	return &OrQuery{Subqueries: children}, nil
}

// globMatch reports whether s matches the `*`/`?` glob pattern, the
// subset of classic syntax spec.md §4.9 lists (`wild*card?`).
func globMatch(pattern, s string) bool {
	return globMatchRunes([]rune(pattern), []rune(s))
}

func globMatchRunes(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatchRunes(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	}
}

func (q *WildcardQuery) EstimateSize(stats scoring.CollectionStats) (uint64, error) {
	return stats.DocCount(), nil
}

func (q *WildcardQuery) Matcher(ctx *Context) (matcher.Matcher, error) {
	simplified, err := q.Simplify(ctx.Source)
	if err != nil {
		return nil, err
	}
	return simplified.Matcher(ctx)
}
