package matcher

// AndNotMatcher produces pos's docids minus neg's, scored as pos's
// score alone, per spec.md §4.6's AndNot row.
type AndNotMatcher struct {
	pos, neg Matcher
}

// NewAndNot builds an AndNotMatcher, skipping neg's cursor past pos's
// positions so the pair starts aligned.
func NewAndNot(pos, neg Matcher) Matcher {
	m := &AndNotMatcher{pos: pos, neg: neg}
	m.align()
	return m
}

func (m *AndNotMatcher) align() {
	for m.pos.IsActive() && m.neg.IsActive() && m.neg.ID() < m.pos.ID() {
		m.neg.SkipTo(m.pos.ID())
	}
	for m.pos.IsActive() && m.neg.IsActive() && m.neg.ID() == m.pos.ID() {
		m.pos.Next()
		for m.pos.IsActive() && m.neg.IsActive() && m.neg.ID() < m.pos.ID() {
			m.neg.SkipTo(m.pos.ID())
		}
	}
}

func (m *AndNotMatcher) IsActive() bool { return m.pos.IsActive() }
func (m *AndNotMatcher) ID() uint64     { return m.pos.ID() }

func (m *AndNotMatcher) Next() (bool, error) {
	if !m.pos.IsActive() {
		return false, nil
	}
	if _, err := m.pos.Next(); err != nil {
		return false, err
	}
	m.align()
	return m.pos.IsActive(), nil
}

func (m *AndNotMatcher) SkipTo(target uint64) (bool, error) {
	if _, err := m.pos.SkipTo(target); err != nil {
		return false, err
	}
	if m.neg.IsActive() {
		if _, err := m.neg.SkipTo(target); err != nil {
			return false, err
		}
	}
	m.align()
	return m.pos.IsActive(), nil
}

func (m *AndNotMatcher) Score() float64    { return m.pos.Score() }
func (m *AndNotMatcher) Weight() float32   { return m.pos.Weight() }
func (m *AndNotMatcher) Positions() []int  { return m.pos.Positions() }
func (m *AndNotMatcher) SupportsQuality() bool { return m.pos.SupportsQuality() }
func (m *AndNotMatcher) MaxQuality() float64   { return m.pos.MaxQuality() }
func (m *AndNotMatcher) BlockQuality() float64 { return m.pos.BlockQuality() }

func (m *AndNotMatcher) SkipToQuality(min float64) (bool, error) {
	if _, err := m.pos.SkipToQuality(min); err != nil {
		return false, err
	}
	m.align()
	return m.pos.IsActive(), nil
}
