package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/matcher"
)

// fakeStats is a minimal scoring.CollectionStats fixture.
type fakeStats struct {
	docCount uint64
	df       map[string]uint64
}

func (s fakeStats) DocCount() uint64 { return s.docCount }
func (s fakeStats) DocFrequency(field string, term []byte) (uint64, error) {
	return s.df[field+":"+string(term)], nil
}
func (s fakeStats) TotalTermFrequency(field string, term []byte) (uint64, error) { return 0, nil }
func (s fakeStats) FieldLengthSum(field string) (uint64, error)                  { return 0, nil }

// fakeMatcher is a tiny docid-only Matcher for exercising query
// combinators without a real segment.
type fakeMatcher struct {
	ids []uint64
	i   int
}

func newFakeMatcher(ids ...uint64) *fakeMatcher { return &fakeMatcher{ids: ids} }

func (m *fakeMatcher) IsActive() bool { return m.i < len(m.ids) }
func (m *fakeMatcher) ID() uint64     { return m.ids[m.i] }
func (m *fakeMatcher) Next() (bool, error) {
	m.i++
	return m.IsActive(), nil
}
func (m *fakeMatcher) SkipTo(target uint64) (bool, error) {
	for m.IsActive() && m.ID() < target {
		m.i++
	}
	return m.IsActive(), nil
}
func (m *fakeMatcher) Score() float64                      { return 1 }
func (m *fakeMatcher) Weight() float32                     { return 1 }
func (m *fakeMatcher) Positions() []int                    { return nil }
func (m *fakeMatcher) SupportsQuality() bool                { return true }
func (m *fakeMatcher) MaxQuality() float64                  { return 1 }
func (m *fakeMatcher) BlockQuality() float64                { return 1 }
func (m *fakeMatcher) SkipToQuality(float64) (bool, error) { return m.IsActive(), nil }

// fakeSource is a hand-built TermSource mapping field:term to a fixed
// docid list.
type fakeSource struct {
	postings map[string][]uint64
	dict     map[string][][]byte // field -> sorted terms
}

func (s *fakeSource) TermMatcher(ctx *Context, field string, term []byte, qf int) (matcher.Matcher, error) {
	ids, ok := s.postings[field+":"+string(term)]
	if !ok {
		return matcher.Null, nil
	}
	return newFakeMatcher(ids...), nil
}

func (s *fakeSource) ExpandPrefix(field string, prefix []byte) ([][]byte, error) {
	var out [][]byte
	for _, t := range s.dict[field] {
		if len(t) >= len(prefix) && string(t[:len(prefix)]) == string(prefix) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeSource) ExpandRange(field string, start, end []byte, startExcl, endExcl bool) ([][]byte, error) {
	var out [][]byte
	for _, t := range s.dict[field] {
		if start != nil {
			if startExcl && string(t) <= string(start) {
				continue
			}
			if !startExcl && string(t) < string(start) {
				continue
			}
		}
		if end != nil {
			if endExcl && string(t) >= string(end) {
				continue
			}
			if !endExcl && string(t) > string(end) {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func newTestContext(src *fakeSource) *Context {
	return &Context{
		Source:   src,
		DocCount: 10,
		IsDeleted: func(uint64) bool { return false },
		Scoring:  true,
	}
}

func collectIDs(t *testing.T, m matcher.Matcher) []uint64 {
	t.Helper()
	var out []uint64
	for m.IsActive() {
		out = append(out, m.ID())
		ok, err := m.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	return out
}

func TestAndNormalizeSingleChild(t *testing.T) {
	q := NewAnd(NewTerm("body", []byte("alfa")))
	require.IsType(t, &TermQuery{}, q.Normalize())
}

func TestAndNormalizeNullChildCollapses(t *testing.T) {
	q := NewAnd(NewTerm("body", []byte("alfa")), Null)
	require.Equal(t, Null, q.Normalize())
}

func TestAndNormalizeFlattensNested(t *testing.T) {
	inner := NewAnd(NewTerm("body", []byte("a")), NewTerm("body", []byte("b")))
	outer := NewAnd(inner, NewTerm("body", []byte("c")))
	n := outer.Normalize().(*AndQuery)
	require.Len(t, n.Subqueries, 3)
}

func TestAndNormalizeDedupes(t *testing.T) {
	q := NewAnd(NewTerm("body", []byte("a")), NewTerm("body", []byte("a")))
	n := q.Normalize()
	require.IsType(t, &TermQuery{}, n)
}

func TestOrNormalizeDropsNull(t *testing.T) {
	q := NewOr(Null, NewTerm("body", []byte("a")))
	n := q.Normalize()
	require.IsType(t, &TermQuery{}, n)
}

func TestOrNormalizeAllNullIsNull(t *testing.T) {
	q := NewOr(Null, Null)
	require.Equal(t, Null, q.Normalize())
}

func TestOrNormalizeMergesOverlappingRanges(t *testing.T) {
	q := NewOr(
		NewTermRange("n", []byte("a"), []byte("m"), false, false),
		NewTermRange("n", []byte("h"), []byte("z"), false, false),
	)
	n := q.Normalize().(*TermRangeQuery)
	require.Equal(t, []byte("a"), n.Start)
	require.Equal(t, []byte("z"), n.End)
}

func TestOrNormalizeKeepsDisjointRanges(t *testing.T) {
	q := NewOr(
		NewTermRange("n", []byte("a"), []byte("c"), false, false),
		NewTermRange("n", []byte("x"), []byte("z"), false, false),
	)
	n := q.Normalize().(*OrQuery)
	require.Len(t, n.Subqueries, 2)
}

func TestAndMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{
		"body:alfa": {1, 2, 3},
		"body:bravo": {2, 3, 4},
	}}
	q := NewAnd(NewTerm("body", []byte("alfa")), NewTerm("body", []byte("bravo")))
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 3}, collectIDs(t, m))
}

func TestOrMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{
		"body:alfa":  {1, 3},
		"body:bravo": {2, 3},
	}}
	q := NewOr(NewTerm("body", []byte("alfa")), NewTerm("body", []byte("bravo")))
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, collectIDs(t, m))
}

func TestAndNotMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{
		"body:alfa": {1, 2, 3, 4},
		"body:stop": {2, 4},
	}}
	q := NewAndNot(NewTerm("body", []byte("alfa")), NewTerm("body", []byte("stop")))
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3}, collectIDs(t, m))
}

func TestNotQueryMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{"body:alfa": {1, 3}}}
	q := NewNot(NewTerm("body", []byte("alfa")))
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 2, 4, 5, 6, 7, 8, 9}, collectIDs(t, m))
}

func TestConstantScoreMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{"body:alfa": {1, 2}}}
	q := NewConstantScore(NewTerm("body", []byte("alfa")), 0.5)
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, 0.5, m.Score())
}

func TestBoostQueryMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{"body:alfa": {1}}}
	q := NewBoost(NewTerm("body", []byte("alfa")), 4.0)
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, 4.0, m.Score())
}

func TestPrefixQuerySimplify(t *testing.T) {
	src := &fakeSource{dict: map[string][][]byte{
		"body": {[]byte("cat"), []byte("car"), []byte("dog")},
	}}
	q := NewPrefix("body", []byte("ca"))
	simplified, err := q.Simplify(src)
	require.NoError(t, err)
	or := simplified.(*OrQuery)
	require.Len(t, or.Subqueries, 2)
}

func TestWildcardQuerySimplify(t *testing.T) {
	src := &fakeSource{dict: map[string][][]byte{
		"body": {[]byte("cat"), []byte("car"), []byte("cart"), []byte("dog")},
	}}
	q := NewWildcard("body", "ca?")
	simplified, err := q.Simplify(src)
	require.NoError(t, err)
	or := simplified.(*OrQuery)
	require.Len(t, or.Subqueries, 2) // cat, car match ca?; cart (4 chars) does not
}

func TestNumericRangeMatcher(t *testing.T) {
	terms := [][]byte{
		encodeSortableBytes(uint64(5)+1<<31, 4),
		encodeSortableBytes(uint64(12)+1<<31, 4),
		encodeSortableBytes(uint64(78)+1<<31, 4),
	}
	src := &fakeSource{dict: map[string][][]byte{"n": terms}}
	for i, term := range terms {
		if src.postings == nil {
			src.postings = map[string][]uint64{}
		}
		src.postings["n:"+string(term)] = []uint64{uint64(i)}
	}
	q := NewTermRange("n", terms[0], terms[1], false, false)
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, collectIDs(t, m))
}

func TestDisjunctionMaxNormalizeSingleChild(t *testing.T) {
	q := NewDisjunctionMax(0.1, NewTerm("a", []byte("x")))
	require.IsType(t, &TermQuery{}, q.Normalize())
}

func TestRequireMatcher(t *testing.T) {
	src := &fakeSource{postings: map[string][]uint64{
		"body:alfa": {1, 2},
		"body:bravo": {2, 3},
	}}
	q := NewRequire(NewTerm("body", []byte("alfa")), NewTerm("body", []byte("bravo")))
	m, err := q.Matcher(newTestContext(src))
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, collectIDs(t, m))
}

func TestAcceptVisitsEveryNode(t *testing.T) {
	q := NewAnd(NewTerm("a", []byte("x")), NewTerm("a", []byte("y")))
	count := 0
	q.Accept(func(n Query) Query {
		count++
		return n
	})
	require.Equal(t, 3, count) // AndQuery + 2 TermQuery leaves
}
