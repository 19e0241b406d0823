package scoring

import "github.com/cinderfts/cinder/internal/matcher"

// FunctionWeighting wraps an arbitrary (weight, length) -> score
// function as a Weighting, grounded on
// original_source/tests/test_scorers.py's test_pos_scorer, which scores
// matches purely from a term's position within the document
// (`1.0 / (poses[0] + 1)`) rather than any standard IR formula. Useful
// for callers that want to plug in a custom ranking signal without
// writing a full Weighting/Scorer pair.
type FunctionWeighting struct {
	Base
	Fn func(stats CollectionStats, field string, term []byte, weight float32, length int) float64
}

// NewFunctionWeighting builds a FunctionWeighting from fn.
func NewFunctionWeighting(fn func(stats CollectionStats, field string, term []byte, weight float32, length int) float64) *FunctionWeighting {
	return &FunctionWeighting{Fn: fn}
}

func (w *FunctionWeighting) Scorer(stats CollectionStats, field string, term []byte, qf int) (matcher.Scorer, error) {
	fn := w.Fn
	return NewWeightLengthScorer(func(weight float32, length int) float64 {
		return fn(stats, field, term, weight, length)
	}), nil
}
