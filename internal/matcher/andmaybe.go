package matcher

// AndMaybeMatcher produces req's docids, adding opt's score when opt
// also matches the current docid, per spec.md §4.6's AndMaybe row.
type AndMaybeMatcher struct {
	req, opt Matcher
}

func NewAndMaybe(req, opt Matcher) Matcher {
	return &AndMaybeMatcher{req: req, opt: opt}
}

func (m *AndMaybeMatcher) IsActive() bool { return m.req.IsActive() }
func (m *AndMaybeMatcher) ID() uint64     { return m.req.ID() }

func (m *AndMaybeMatcher) alignOpt() {
	if m.req.IsActive() && m.opt.IsActive() && m.opt.ID() < m.req.ID() {
		m.opt.SkipTo(m.req.ID())
	}
}

func (m *AndMaybeMatcher) Next() (bool, error) {
	if _, err := m.req.Next(); err != nil {
		return false, err
	}
	m.alignOpt()
	return m.req.IsActive(), nil
}

func (m *AndMaybeMatcher) SkipTo(target uint64) (bool, error) {
	if _, err := m.req.SkipTo(target); err != nil {
		return false, err
	}
	m.alignOpt()
	return m.req.IsActive(), nil
}

func (m *AndMaybeMatcher) matches() bool {
	return m.req.IsActive() && m.opt.IsActive() && m.opt.ID() == m.req.ID()
}

func (m *AndMaybeMatcher) Score() float64 {
	s := m.req.Score()
	if m.matches() {
		s += m.opt.Score()
	}
	return s
}

func (m *AndMaybeMatcher) Weight() float32 {
	w := m.req.Weight()
	if m.matches() {
		w += m.opt.Weight()
	}
	return w
}

func (m *AndMaybeMatcher) Positions() []int { return m.req.Positions() }

func (m *AndMaybeMatcher) SupportsQuality() bool { return m.req.SupportsQuality() }
func (m *AndMaybeMatcher) MaxQuality() float64 {
	return m.req.MaxQuality() + m.opt.MaxQuality()
}
func (m *AndMaybeMatcher) BlockQuality() float64 { return m.req.BlockQuality() }

func (m *AndMaybeMatcher) SkipToQuality(min float64) (bool, error) {
	if _, err := m.req.SkipToQuality(min); err != nil {
		return false, err
	}
	m.alignOpt()
	return m.req.IsActive(), nil
}

// RequireMatcher produces the intersection of a and b's docids but
// scores using only a, per spec.md §4.6's Require row (distinct from
// Intersection, which sums both children's scores).
type RequireMatcher struct {
	inter *IntersectionMatcher
	a     Matcher
}

func NewRequire(a, b Matcher) Matcher {
	inter := newIntersection(a, b)
	return &RequireMatcher{inter: inter, a: a}
}

func (m *RequireMatcher) IsActive() bool             { return m.inter.IsActive() }
func (m *RequireMatcher) ID() uint64                 { return m.inter.ID() }
func (m *RequireMatcher) Next() (bool, error)        { return m.inter.Next() }
func (m *RequireMatcher) SkipTo(t uint64) (bool, error) { return m.inter.SkipTo(t) }
func (m *RequireMatcher) Score() float64             { return m.a.Score() }
func (m *RequireMatcher) Weight() float32            { return m.a.Weight() }
func (m *RequireMatcher) Positions() []int           { return m.a.Positions() }
func (m *RequireMatcher) SupportsQuality() bool      { return m.a.SupportsQuality() }
func (m *RequireMatcher) MaxQuality() float64        { return m.a.MaxQuality() }
func (m *RequireMatcher) BlockQuality() float64      { return m.a.BlockQuality() }

func (m *RequireMatcher) SkipToQuality(min float64) (bool, error) {
	if _, err := m.a.SkipToQuality(min); err != nil {
		return false, err
	}
	return m.inter.SkipTo(m.a.ID())
}
