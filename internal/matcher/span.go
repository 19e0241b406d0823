package matcher

// Span is an ordered positional interval [Start, End] within a
// document, the unit SpanFirst/SpanNot/SpanContains reason about.
type Span struct {
	Start, End int
}

// SpanSource is implemented by matchers that can report the spans they
// matched at the current docid (TermMatcher's single-position spans
// collapse Start==End==position; Phrase/other span matchers report the
// interval their sub-matches covered).
type SpanSource interface {
	Matcher
	Spans() []Span
}

// termSpanSource adapts a TermMatcher's Positions() into single-point
// Spans, the base case span-aware queries wrap.
type termSpanSource struct {
	*TermMatcher
}

func (s termSpanSource) Spans() []Span {
	var out []Span
	for _, p := range s.TermMatcher.Positions() {
		out = append(out, Span{Start: p, End: p})
	}
	return out
}

// NewTermSpanSource wraps a TermMatcher so it satisfies SpanSource.
func NewTermSpanSource(m *TermMatcher) SpanSource { return termSpanSource{m} }

// SpanFirstMatcher produces child's docids restricted to those where at
// least one span starts at or before limit, per spec.md §4.6's
// SpanFirst row.
type SpanFirstMatcher struct {
	child SpanSource
	limit int
}

func NewSpanFirst(child SpanSource, limit int) Matcher {
	m := &SpanFirstMatcher{child: child, limit: limit}
	m.align()
	return m
}

func (m *SpanFirstMatcher) matches() bool {
	for _, s := range m.child.Spans() {
		if s.Start <= m.limit {
			return true
		}
	}
	return false
}

func (m *SpanFirstMatcher) align() {
	for m.child.IsActive() && !m.matches() {
		m.child.Next()
	}
}

func (m *SpanFirstMatcher) IsActive() bool { return m.child.IsActive() }
func (m *SpanFirstMatcher) ID() uint64     { return m.child.ID() }

func (m *SpanFirstMatcher) Next() (bool, error) {
	if _, err := m.child.Next(); err != nil {
		return false, err
	}
	m.align()
	return m.child.IsActive(), nil
}

func (m *SpanFirstMatcher) SkipTo(target uint64) (bool, error) {
	if _, err := m.child.SkipTo(target); err != nil {
		return false, err
	}
	m.align()
	return m.child.IsActive(), nil
}

func (m *SpanFirstMatcher) Score() float64        { return m.child.Score() }
func (m *SpanFirstMatcher) Weight() float32       { return m.child.Weight() }
func (m *SpanFirstMatcher) Positions() []int      { return m.child.Positions() }
func (m *SpanFirstMatcher) SupportsQuality() bool { return false }
func (m *SpanFirstMatcher) MaxQuality() float64   { return m.child.MaxQuality() }
func (m *SpanFirstMatcher) BlockQuality() float64 { return m.child.BlockQuality() }
func (m *SpanFirstMatcher) SkipToQuality(float64) (bool, error) { return m.Next() }

// SpanNotMatcher produces include's docids minus those whose spans
// overlap any of exclude's spans at the same docid, per spec.md §4.6's
// SpanNot row.
type SpanNotMatcher struct {
	include SpanSource
	exclude SpanSource
}

func NewSpanNot(include, exclude SpanSource) Matcher {
	m := &SpanNotMatcher{include: include, exclude: exclude}
	m.align()
	return m
}

func overlaps(a, b Span) bool { return a.Start <= b.End && b.Start <= a.End }

func (m *SpanNotMatcher) excludedHere() bool {
	if !m.exclude.IsActive() || m.exclude.ID() != m.include.ID() {
		return false
	}
	for _, is := range m.include.Spans() {
		for _, es := range m.exclude.Spans() {
			if overlaps(is, es) {
				return true
			}
		}
	}
	return false
}

func (m *SpanNotMatcher) align() {
	for m.include.IsActive() {
		if m.exclude.IsActive() && m.exclude.ID() < m.include.ID() {
			m.exclude.SkipTo(m.include.ID())
		}
		if !m.excludedHere() {
			return
		}
		m.include.Next()
	}
}

func (m *SpanNotMatcher) IsActive() bool { return m.include.IsActive() }
func (m *SpanNotMatcher) ID() uint64     { return m.include.ID() }

func (m *SpanNotMatcher) Next() (bool, error) {
	if _, err := m.include.Next(); err != nil {
		return false, err
	}
	m.align()
	return m.include.IsActive(), nil
}

func (m *SpanNotMatcher) SkipTo(target uint64) (bool, error) {
	if _, err := m.include.SkipTo(target); err != nil {
		return false, err
	}
	m.align()
	return m.include.IsActive(), nil
}

func (m *SpanNotMatcher) Score() float64        { return m.include.Score() }
func (m *SpanNotMatcher) Weight() float32       { return m.include.Weight() }
func (m *SpanNotMatcher) Positions() []int      { return m.include.Positions() }
func (m *SpanNotMatcher) SupportsQuality() bool { return false }
func (m *SpanNotMatcher) MaxQuality() float64   { return m.include.MaxQuality() }
func (m *SpanNotMatcher) BlockQuality() float64 { return m.include.BlockQuality() }
func (m *SpanNotMatcher) SkipToQuality(float64) (bool, error) { return m.Next() }

// SpanContainsMatcher produces outer's docids restricted to those where
// at least one of outer's spans contains at least one of inner's spans,
// per spec.md §4.6's SpanContains row.
type SpanContainsMatcher struct {
	outer SpanSource
	inner SpanSource
}

func NewSpanContains(outer, inner SpanSource) Matcher {
	m := &SpanContainsMatcher{outer: outer, inner: inner}
	m.align()
	return m
}

func contains(outer, inner Span) bool { return outer.Start <= inner.Start && inner.End <= outer.End }

func (m *SpanContainsMatcher) matches() bool {
	if !m.inner.IsActive() || m.inner.ID() != m.outer.ID() {
		return false
	}
	for _, os := range m.outer.Spans() {
		for _, is := range m.inner.Spans() {
			if contains(os, is) {
				return true
			}
		}
	}
	return false
}

func (m *SpanContainsMatcher) align() {
	for m.outer.IsActive() {
		if m.inner.IsActive() && m.inner.ID() < m.outer.ID() {
			m.inner.SkipTo(m.outer.ID())
		}
		if m.matches() {
			return
		}
		m.outer.Next()
	}
}

func (m *SpanContainsMatcher) IsActive() bool { return m.outer.IsActive() }
func (m *SpanContainsMatcher) ID() uint64     { return m.outer.ID() }

func (m *SpanContainsMatcher) Next() (bool, error) {
	if _, err := m.outer.Next(); err != nil {
		return false, err
	}
	m.align()
	return m.outer.IsActive(), nil
}

func (m *SpanContainsMatcher) SkipTo(target uint64) (bool, error) {
	if _, err := m.outer.SkipTo(target); err != nil {
		return false, err
	}
	m.align()
	return m.outer.IsActive(), nil
}

func (m *SpanContainsMatcher) Score() float64        { return m.outer.Score() }
func (m *SpanContainsMatcher) Weight() float32       { return m.outer.Weight() }
func (m *SpanContainsMatcher) Positions() []int      { return m.outer.Positions() }
func (m *SpanContainsMatcher) SupportsQuality() bool { return false }
func (m *SpanContainsMatcher) MaxQuality() float64   { return m.outer.MaxQuality() }
func (m *SpanContainsMatcher) BlockQuality() float64 { return m.outer.BlockQuality() }
func (m *SpanContainsMatcher) SkipToQuality(float64) (bool, error) { return m.Next() }
