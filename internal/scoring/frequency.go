package scoring

import "github.com/cinderfts/cinder/internal/matcher"

// FrequencyWeighting scores a posting as its raw weight times the
// query-side term frequency, the simplest of spec.md §4.7's four
// required models (no idf, no length normalization).
type FrequencyWeighting struct {
	Base
}

func (FrequencyWeighting) Scorer(stats CollectionStats, field string, term []byte, qf int) (matcher.Scorer, error) {
	mult := float64(qf)
	return NewWeightLengthScorer(func(weight float32, length int) float64 {
		return float64(weight) * mult
	}), nil
}
