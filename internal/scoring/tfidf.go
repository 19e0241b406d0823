package scoring

import "github.com/cinderfts/cinder/internal/matcher"

// TFIDFWeighting is the classic tf*idf model: a posting's weight times
// its term's inverse document frequency, per spec.md §4.7's required
// model list. Query-side term frequency (qf) multiplies the result, so
// a term repeated in the query counts for more.
type TFIDFWeighting struct {
	Base
}

func (TFIDFWeighting) Scorer(stats CollectionStats, field string, term []byte, qf int) (matcher.Scorer, error) {
	df, err := stats.DocFrequency(field, term)
	if err != nil {
		return nil, err
	}
	weight := idf(stats.DocCount(), df) * float64(qf)
	return NewWeightLengthScorer(func(w float32, length int) float64 {
		return float64(w) * weight
	}), nil
}
