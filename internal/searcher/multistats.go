package searcher

import "github.com/cinderfts/cinder/internal/scoring"

// multiStats implements scoring.CollectionStats by summing each
// per-segment CollectionStats, the whole-index statistics a Weighting
// needs when scoring across every segment a Searcher holds open —
// spec.md §5's virtual docid space has a matching virtual statistics
// space.
type multiStats struct {
	segs []scoring.CollectionStats
}

func newMultiStats(segs []scoring.CollectionStats) *multiStats {
	return &multiStats{segs: segs}
}

func (m *multiStats) DocCount() uint64 {
	var total uint64
	for _, s := range m.segs {
		total += s.DocCount()
	}
	return total
}

func (m *multiStats) DocFrequency(field string, term []byte) (uint64, error) {
	var total uint64
	for _, s := range m.segs {
		df, err := s.DocFrequency(field, term)
		if err != nil {
			return 0, err
		}
		total += df
	}
	return total, nil
}

func (m *multiStats) TotalTermFrequency(field string, term []byte) (uint64, error) {
	var total uint64
	for _, s := range m.segs {
		tf, err := s.TotalTermFrequency(field, term)
		if err != nil {
			return 0, err
		}
		total += tf
	}
	return total, nil
}

func (m *multiStats) FieldLengthSum(field string) (uint64, error) {
	var total uint64
	for _, s := range m.segs {
		sum, err := s.FieldLengthSum(field)
		if err != nil {
			return 0, err
		}
		total += sum
	}
	return total, nil
}
