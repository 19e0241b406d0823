package matcher

// ArrayUnionMatcher unions many submatchers by pre-reading a block of
// docids at a time into a score array rather than marching a balanced
// tree of UnionMatchers one docid at a time, grounded on
// original_source/src/whoosh/matching/combo.py's ArrayUnionMatcher
// (spec.md §4.6's ArrayUnion row: "union, batched via docid score
// array"). Worthwhile once the fan-out is wide enough that tree-walk
// overhead dominates (many terms from a wildcard/fuzzy expansion, for
// instance).
type ArrayUnionMatcher struct {
	subs     []Matcher
	docCount uint64
	boost    float64
	partSize uint64

	offset uint64 // docnum corresponding to scores[0]
	limit  uint64 // docnum just past the read window
	scores []float64
	id     uint64
	active bool
}

// NewArrayUnion builds an ArrayUnionMatcher over subs, reading partSize
// docids at a time (0 defaults to 2048, combo.py's default).
func NewArrayUnion(subs []Matcher, docCount uint64, boost float64, partSize uint64) Matcher {
	if len(subs) == 0 {
		return Null
	}
	if partSize == 0 {
		partSize = 2048
	}
	m := &ArrayUnionMatcher{subs: subs, docCount: docCount, boost: boost, partSize: partSize}
	m.id = m.minID()
	m.active = m.id < m.docCount
	if m.active {
		m.readPart()
	}
	return m
}

func (m *ArrayUnionMatcher) minID() uint64 {
	min := m.docCount
	for _, s := range m.subs {
		if s.IsActive() && s.ID() < min {
			min = s.ID()
		}
	}
	return min
}

// readPart fills scores[0:limit-offset] from every submatcher whose
// docid falls in [id, id+partSize), advancing each past the window.
func (m *ArrayUnionMatcher) readPart() {
	offset := m.id
	limit := offset + m.partSize
	if limit > m.docCount {
		limit = m.docCount
	}
	m.scores = make([]float64, limit-offset)
	for _, sub := range m.subs {
		for sub.IsActive() && sub.ID() < limit {
			m.scores[sub.ID()-offset] += sub.Score() * m.boost
			sub.Next()
		}
	}
	m.offset = offset
	m.limit = limit
	m.advanceToNonZero()
}

// advanceToNonZero moves id forward within the current window to the
// next docid with a nonzero accumulated score, reading the next window
// (or exhausting) once the window is consumed.
func (m *ArrayUnionMatcher) advanceToNonZero() {
	for {
		for m.id < m.limit {
			if m.scores[m.id-m.offset] != 0 {
				return
			}
			m.id++
		}
		if m.limit >= m.docCount {
			m.active = false
			return
		}
		next := m.minID()
		if next < m.limit {
			next = m.limit
		}
		if next >= m.docCount {
			m.active = false
			return
		}
		m.id = next
		m.readPart()
		return
	}
}

func (m *ArrayUnionMatcher) IsActive() bool { return m.active }
func (m *ArrayUnionMatcher) ID() uint64     { return m.id }

func (m *ArrayUnionMatcher) Next() (bool, error) {
	if !m.active {
		return false, nil
	}
	m.id++
	m.advanceToNonZero()
	return m.active, nil
}

func (m *ArrayUnionMatcher) SkipTo(target uint64) (bool, error) {
	if !m.active || target <= m.id {
		return m.active, nil
	}
	if target >= m.limit {
		for _, sub := range m.subs {
			if sub.IsActive() {
				sub.SkipTo(target)
			}
		}
		m.id = target
		if m.id >= m.docCount {
			m.active = false
			return false, nil
		}
		m.readPart()
		return m.active, nil
	}
	m.id = target
	m.advanceToNonZero()
	return m.active, nil
}

func (m *ArrayUnionMatcher) Score() float64 { return m.scores[m.id-m.offset] }
func (m *ArrayUnionMatcher) Weight() float32 { return float32(m.Score()) }
func (m *ArrayUnionMatcher) Positions() []int { return nil }

func (m *ArrayUnionMatcher) SupportsQuality() bool { return false }

func (m *ArrayUnionMatcher) MaxQuality() float64 {
	var max float64
	for _, s := range m.subs {
		if q := s.MaxQuality(); q > max {
			max = q
		}
	}
	return max * m.boost
}

func (m *ArrayUnionMatcher) BlockQuality() float64 { return m.MaxQuality() }

func (m *ArrayUnionMatcher) SkipToQuality(min float64) (bool, error) {
	// Batched scoring has no per-block bound finer than the overall
	// max; either every remaining doc might qualify, or none can.
	if m.MaxQuality() < min {
		m.active = false
		return false, nil
	}
	return m.active, nil
}
