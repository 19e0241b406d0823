package matcher

// DisjunctionMaxMatcher produces the union of its children's docids,
// scoring each as the best-matching child's score plus a small
// tiebreak fraction of the others, per spec.md §4.6's DisjunctionMax
// row ("max child score + tie×Σ others").
type DisjunctionMaxMatcher struct {
	union    Matcher
	children []Matcher
	tie      float64
}

// NewDisjunctionMax builds a DisjunctionMaxMatcher over children with
// the given tiebreak multiplier (0 disables the tiebreak entirely,
// reducing to plain best-match scoring).
func NewDisjunctionMax(children []Matcher, tie float64) Matcher {
	if len(children) == 0 {
		return Null
	}
	return &DisjunctionMaxMatcher{union: NewUnion(children...), children: children, tie: tie}
}

func (m *DisjunctionMaxMatcher) IsActive() bool      { return m.union.IsActive() }
func (m *DisjunctionMaxMatcher) ID() uint64          { return m.union.ID() }
func (m *DisjunctionMaxMatcher) Next() (bool, error) { return m.union.Next() }
func (m *DisjunctionMaxMatcher) SkipTo(t uint64) (bool, error) {
	return m.union.SkipTo(t)
}

func (m *DisjunctionMaxMatcher) matchingScores() []float64 {
	id := m.ID()
	var scores []float64
	for _, c := range m.children {
		if c.IsActive() && c.ID() == id {
			scores = append(scores, c.Score())
		}
	}
	return scores
}

func (m *DisjunctionMaxMatcher) Score() float64 {
	scores := m.matchingScores()
	if len(scores) == 0 {
		return 0
	}
	best, sum := scores[0], 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
		sum += s
	}
	return best + m.tie*(sum-best)
}

func (m *DisjunctionMaxMatcher) Weight() float32   { return m.union.Weight() }
func (m *DisjunctionMaxMatcher) Positions() []int  { return m.union.Positions() }

func (m *DisjunctionMaxMatcher) SupportsQuality() bool { return m.union.SupportsQuality() }
func (m *DisjunctionMaxMatcher) MaxQuality() float64   { return m.union.MaxQuality() }
func (m *DisjunctionMaxMatcher) BlockQuality() float64 { return m.union.BlockQuality() }
func (m *DisjunctionMaxMatcher) SkipToQuality(min float64) (bool, error) {
	return m.union.SkipToQuality(min)
}
