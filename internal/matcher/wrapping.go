package matcher

// ConstantScoreMatcher produces child's docids but scores every one as
// the fixed value s, per spec.md §4.6's Constant row (used by
// filter-only query nodes like a bare TermRange used as a restrict).
type ConstantScoreMatcher struct {
	Matcher
	s float64
}

func NewConstantScore(child Matcher, s float64) Matcher {
	return &ConstantScoreMatcher{Matcher: child, s: s}
}

func (m *ConstantScoreMatcher) Score() float64        { return m.s }
func (m *ConstantScoreMatcher) MaxQuality() float64   { return m.s }
func (m *ConstantScoreMatcher) BlockQuality() float64 { return m.s }

// SkipToQuality either leaves the cursor untouched (every remaining
// posting already scores s >= min) or exhausts the matcher entirely
// (s < min, so no remaining posting can ever qualify).
func (m *ConstantScoreMatcher) SkipToQuality(min float64) (bool, error) {
	if m.s >= min {
		return m.Matcher.IsActive(), nil
	}
	for m.Matcher.IsActive() {
		if _, err := m.Matcher.Next(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// WrappingMatcher produces child's docids, multiplying its score by a
// fixed boost, per spec.md §4.6's Wrapping row.
type WrappingMatcher struct {
	Matcher
	boost float64
}

func NewWrapping(child Matcher, boost float64) Matcher {
	return &WrappingMatcher{Matcher: child, boost: boost}
}

func (m *WrappingMatcher) Score() float64      { return m.Matcher.Score() * m.boost }
func (m *WrappingMatcher) MaxQuality() float64 { return m.Matcher.MaxQuality() * m.boost }
func (m *WrappingMatcher) BlockQuality() float64 {
	return m.Matcher.BlockQuality() * m.boost
}
func (m *WrappingMatcher) SkipToQuality(min float64) (bool, error) {
	if m.boost == 0 {
		return m.Matcher.SkipToQuality(0)
	}
	return m.Matcher.SkipToQuality(min / m.boost)
}
