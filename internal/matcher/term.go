package matcher

import "github.com/cinderfts/cinder/internal/codec/block"

// TermMatcher is the leaf matcher of spec.md §4.6's table: docids come
// straight from a term's posting reader, scored by the Scorer a
// Weighting built for (field, term).
type TermMatcher struct {
	reader *block.Reader
	scorer Scorer

	// termMaxQuality is the Scorer's bound over the term's full
	// (max_weight, min_length, max_length) from its termdict.TermInfo,
	// not just the currently loaded block — a term's blocks can have
	// looser per-block bounds than the term-wide one.
	termMaxQuality float64
}

// NewTermMatcher wraps an already-positioned block.Reader with scorer.
// maxWeight/minLength/maxLength come from the term's termdict.TermInfo
// and bound MaxQuality for the matcher's entire lifetime.
func NewTermMatcher(reader *block.Reader, scorer Scorer, maxWeight float32, minLength, maxLength int) *TermMatcher {
	return &TermMatcher{
		reader:         reader,
		scorer:         scorer,
		termMaxQuality: scorer.Quality(maxWeight, minLength, maxLength),
	}
}

func (m *TermMatcher) IsActive() bool { return m.reader.IsActive() }
func (m *TermMatcher) ID() uint64     { return m.reader.ID() }

func (m *TermMatcher) Next() (bool, error) { return m.reader.Next() }

func (m *TermMatcher) SkipTo(target uint64) (bool, error) {
	if m.reader.IsActive() && m.reader.ID() >= target {
		return true, nil
	}
	return m.reader.SkipTo(target)
}

func (m *TermMatcher) Score() float64 {
	return m.scorer.Score(m.reader.Weight(), m.reader.Length())
}

func (m *TermMatcher) Weight() float32 { return m.reader.Weight() }

func (m *TermMatcher) Positions() []int { return m.reader.Positions() }

func (m *TermMatcher) Chars() []CharSpan { return m.reader.Chars() }

func (m *TermMatcher) Payloads() [][]byte { return m.reader.Payloads() }

func (m *TermMatcher) SupportsQuality() bool { return true }

func (m *TermMatcher) quality(maxWeight float32, minLength, maxLength int) float64 {
	return m.scorer.Quality(maxWeight, minLength, maxLength)
}

func (m *TermMatcher) MaxQuality() float64 {
	return m.termMaxQuality
}

func (m *TermMatcher) BlockQuality() float64 {
	return m.reader.BlockQuality(m.quality)
}

func (m *TermMatcher) SkipToQuality(min float64) (bool, error) {
	return m.reader.SkipToQuality(min, m.quality)
}
