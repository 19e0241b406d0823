package matcher

// InverseMatcher produces every docid in [0, docCount) that child does
// not, minus deleted docs, scored as a constant, per spec.md §4.6's
// Inverse row — the matcher a NOT query with no positive term (or a
// bare "not X" over the whole corpus) resolves to.
type InverseMatcher struct {
	child     Matcher
	docCount  uint64
	isDeleted func(docnum uint64) bool
	score     float64

	id     uint64
	active bool
}

// NewInverse builds an InverseMatcher. child must already be positioned
// at its first docid (or inactive, if it matches nothing).
func NewInverse(child Matcher, docCount uint64, isDeleted func(uint64) bool, score float64) Matcher {
	m := &InverseMatcher{child: child, docCount: docCount, isDeleted: isDeleted, score: score}
	m.id = 0
	m.active = true
	m.settle()
	return m
}

// settle advances id past any docid the child currently matches or any
// deleted docnum, until a genuine inverse match is found or the corpus
// is exhausted.
func (m *InverseMatcher) settle() {
	for m.active && m.id < m.docCount {
		if m.child.IsActive() && m.child.ID() < m.id {
			m.child.SkipTo(m.id)
		}
		blocked := (m.child.IsActive() && m.child.ID() == m.id) || (m.isDeleted != nil && m.isDeleted(m.id))
		if !blocked {
			return
		}
		m.id++
	}
	m.active = m.id < m.docCount
}

func (m *InverseMatcher) IsActive() bool { return m.active }
func (m *InverseMatcher) ID() uint64     { return m.id }

func (m *InverseMatcher) Next() (bool, error) {
	if !m.active {
		return false, nil
	}
	m.id++
	m.settle()
	return m.active, nil
}

func (m *InverseMatcher) SkipTo(target uint64) (bool, error) {
	if target > m.id {
		m.id = target
	}
	m.settle()
	return m.active, nil
}

func (m *InverseMatcher) Score() float64    { return m.score }
func (m *InverseMatcher) Weight() float32   { return 1 }
func (m *InverseMatcher) Positions() []int  { return nil }

// SupportsQuality is false: an inverse matcher's matching set depends
// on what the whole corpus is NOT, which has no useful block-level
// upper bound to skip on.
func (m *InverseMatcher) SupportsQuality() bool          { return false }
func (m *InverseMatcher) MaxQuality() float64            { return m.score }
func (m *InverseMatcher) BlockQuality() float64          { return m.score }
func (m *InverseMatcher) SkipToQuality(float64) (bool, error) { return m.active, nil }
