package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePosting is one docid's score/weight/positions for fakeMatcher.
type fakePosting struct {
	id        uint64
	score     float64
	positions []int
}

// fakeMatcher is a minimal in-memory Matcher used to test the
// combinators without needing a real block.Reader/Scorer.
type fakeMatcher struct {
	postings []fakePosting
	i        int
	maxQ     float64
}

func newFake(ids ...uint64) *fakeMatcher {
	var ps []fakePosting
	for _, id := range ids {
		ps = append(ps, fakePosting{id: id, score: 1})
	}
	return &fakeMatcher{postings: ps, maxQ: 1}
}

func newFakeScored(entries ...fakePosting) *fakeMatcher {
	maxQ := 0.0
	for _, e := range entries {
		if e.score > maxQ {
			maxQ = e.score
		}
	}
	return &fakeMatcher{postings: entries, maxQ: maxQ}
}

func (f *fakeMatcher) IsActive() bool { return f.i < len(f.postings) }
func (f *fakeMatcher) ID() uint64     { return f.postings[f.i].id }

func (f *fakeMatcher) Next() (bool, error) {
	f.i++
	return f.IsActive(), nil
}

func (f *fakeMatcher) SkipTo(target uint64) (bool, error) {
	for f.IsActive() && f.ID() < target {
		f.i++
	}
	return f.IsActive(), nil
}

func (f *fakeMatcher) Score() float64      { return f.postings[f.i].score }
func (f *fakeMatcher) Weight() float32     { return float32(f.postings[f.i].score) }
func (f *fakeMatcher) Positions() []int    { return f.postings[f.i].positions }
func (f *fakeMatcher) SupportsQuality() bool { return true }
func (f *fakeMatcher) MaxQuality() float64   { return f.maxQ }
func (f *fakeMatcher) BlockQuality() float64 { return f.maxQ }

func (f *fakeMatcher) SkipToQuality(min float64) (bool, error) {
	if f.maxQ < min {
		f.i = len(f.postings)
		return false, nil
	}
	return f.IsActive(), nil
}

func collectIDs(t *testing.T, m Matcher) []uint64 {
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

func TestIntersectionMatcher(t *testing.T) {
	a := newFake(1, 2, 3, 5, 8)
	b := newFake(2, 3, 4, 8)
	m := NewIntersection(a, b)
	require.Equal(t, []uint64{2, 3, 8}, collectIDs(t, m))
}

func TestUnionMatcher(t *testing.T) {
	a := newFake(1, 3, 5)
	b := newFake(2, 3, 4)
	m := NewUnion(a, b)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, collectIDs(t, m))
}

func TestUnionBalancedMultiway(t *testing.T) {
	m := NewUnion(newFake(1, 4), newFake(2, 4), newFake(3, 4), newFake(0))
	require.Equal(t, []uint64{0, 1, 2, 3, 4}, collectIDs(t, m))
}

func TestAndNotMatcher(t *testing.T) {
	pos := newFake(1, 2, 3, 4, 5)
	neg := newFake(2, 4)
	m := NewAndNot(pos, neg)
	require.Equal(t, []uint64{1, 3, 5}, collectIDs(t, m))
}

func TestAndMaybeMatcher(t *testing.T) {
	req := newFakeScored(fakePosting{id: 1, score: 1}, fakePosting{id: 2, score: 1}, fakePosting{id: 3, score: 1})
	opt := newFakeScored(fakePosting{id: 2, score: 5})
	m := NewAndMaybe(req, opt)
	require.Equal(t, []uint64{1, 2, 3}, collectIDs(t, m))

	req2 := newFakeScored(fakePosting{id: 1, score: 1}, fakePosting{id: 2, score: 1})
	opt2 := newFakeScored(fakePosting{id: 2, score: 5})
	m2 := NewAndMaybe(req2, opt2)
	require.Equal(t, 1.0, m2.Score())
	m2.Next()
	require.Equal(t, 6.0, m2.Score())
}

func TestRequireMatcher(t *testing.T) {
	newPair := func() (Matcher, Matcher) {
		return newFakeScored(fakePosting{id: 1, score: 7}, fakePosting{id: 2, score: 9}), newFake(2, 3)
	}

	a1, b1 := newPair()
	require.Equal(t, []uint64{2}, collectIDs(t, NewRequire(a1, b1)))

	a2, b2 := newPair()
	m := NewRequire(a2, b2)
	require.Equal(t, 9.0, m.Score())
}

func TestDisjunctionMaxMatcher(t *testing.T) {
	a := newFakeScored(fakePosting{id: 1, score: 5})
	b := newFakeScored(fakePosting{id: 1, score: 3})
	m := NewDisjunctionMax([]Matcher{a, b}, 0.5)
	require.True(t, m.IsActive())
	require.Equal(t, uint64(1), m.ID())
	require.InDelta(t, 5+0.5*3, m.Score(), 1e-9)
}

func TestInverseMatcher(t *testing.T) {
	child := newFake(1, 3)
	deleted := map[uint64]bool{4: true}
	m := NewInverse(child, 5, func(id uint64) bool { return deleted[id] }, 1.0)
	require.Equal(t, []uint64{0, 2}, collectIDs(t, m))
}

func TestWrappingMatcher(t *testing.T) {
	child := newFakeScored(fakePosting{id: 1, score: 2})
	m := NewWrapping(child, 3.0)
	require.Equal(t, 6.0, m.Score())
}

func TestConstantScoreMatcher(t *testing.T) {
	child := newFake(1, 2, 3)
	m := NewConstantScore(child, 0.25)
	require.Equal(t, 0.25, m.Score())
	require.Equal(t, []uint64{1, 2, 3}, collectIDs(t, NewConstantScore(newFake(1, 2, 3), 0.25)))
}

func TestArrayUnionMatcher(t *testing.T) {
	a := newFakeScored(fakePosting{id: 1, score: 2}, fakePosting{id: 5, score: 1})
	b := newFakeScored(fakePosting{id: 1, score: 3}, fakePosting{id: 2, score: 4})
	m := NewArrayUnion([]Matcher{a, b}, 10, 1.0, 4)
	var ids []uint64
	var scores []float64
	for m.IsActive() {
		ids = append(ids, m.ID())
		scores = append(scores, m.Score())
		ok, err := m.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.Equal(t, []uint64{1, 2, 5}, ids)
	require.InDeltaSlice(t, []float64{5, 4, 1}, scores, 1e-9)
}

func TestPhraseMatcherExactAdjacent(t *testing.T) {
	quick := newFakeScored(fakePosting{id: 1, score: 1, positions: []int{0, 10}})
	fox := newFakeScored(fakePosting{id: 1, score: 1, positions: []int{1, 20}})
	m := NewPhrase([]Matcher{quick, fox}, []int{0, 1}, 0)
	require.True(t, m.IsActive())
	require.Equal(t, uint64(1), m.ID())
}

func TestPhraseMatcherNoMatch(t *testing.T) {
	quick := newFakeScored(fakePosting{id: 1, score: 1, positions: []int{0}})
	fox := newFakeScored(fakePosting{id: 1, score: 1, positions: []int{9}})
	m := NewPhrase([]Matcher{quick, fox}, []int{0, 1}, 0)
	require.False(t, m.IsActive())
}

func TestSpanFirstMatcher(t *testing.T) {
	inner := termSpanFake(t, fakePosting{id: 1, positions: []int{0, 5}}, fakePosting{id: 2, positions: []int{3, 4}})
	m := NewSpanFirst(inner, 1)
	require.Equal(t, []uint64{1}, collectIDs(t, m))
}

func TestSpanNotMatcher(t *testing.T) {
	include := termSpanFake(t, fakePosting{id: 1, positions: []int{5}}, fakePosting{id: 2, positions: []int{5}})
	exclude := termSpanFake(t, fakePosting{id: 1, positions: []int{5}})
	m := NewSpanNot(include, exclude)
	require.Equal(t, []uint64{2}, collectIDs(t, m))
}

// fakeSpanMatcher adapts fakeMatcher's Positions() into single-point
// Spans for span-matcher tests.
type fakeSpanMatcher struct{ *fakeMatcher }

func (f fakeSpanMatcher) Spans() []Span {
	var out []Span
	for _, p := range f.fakeMatcher.Positions() {
		out = append(out, Span{Start: p, End: p})
	}
	return out
}

func termSpanFake(t *testing.T, postings ...fakePosting) SpanSource {
	t.Helper()
	return fakeSpanMatcher{newFakeScored(postings...)}
}
