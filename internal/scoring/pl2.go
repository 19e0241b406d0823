package scoring

import (
	"math"

	"github.com/cinderfts/cinder/internal/matcher"
)

// DefaultPL2C is PL2's default length-normalization constant.
const DefaultPL2C = 1.0

// PL2Weighting implements Amati and van Rijsbergen's PL2, a
// Divergence-From-Randomness model, completing spec.md §4.7's required
// model list. It has no idf term of its own; instead term frequency is
// length-normalized (tfn) and compared against lambda, the term's
// average frequency across the whole collection, via a Poisson-Laplace
// divergence.
type PL2Weighting struct {
	Base
	C float64
}

// NewPL2 builds a PL2Weighting with the standard normalization
// constant.
func NewPL2() *PL2Weighting {
	return &PL2Weighting{C: DefaultPL2C}
}

func (w *PL2Weighting) Scorer(stats CollectionStats, field string, term []byte, qf int) (matcher.Scorer, error) {
	avgLen, err := avgFieldLength(stats, field)
	if err != nil {
		return nil, err
	}
	totalTF, err := stats.TotalTermFrequency(field, term)
	if err != nil {
		return nil, err
	}
	docCount := stats.DocCount()
	var lambda float64
	if docCount > 0 {
		lambda = float64(totalTF) / float64(docCount)
	}
	c := w.C
	if c == 0 {
		c = DefaultPL2C
	}
	qfMult := float64(qf)

	return NewWeightLengthScorer(func(weight float32, length int) float64 {
		tf := float64(weight)
		if tf <= 0 {
			return 0
		}
		l := float64(length)
		if l == 0 {
			l = 1
		}
		norm := avgLen
		if norm == 0 {
			norm = 1
		}
		tfn := tf * math.Log2(1+c*norm/l)
		if tfn <= 0 || lambda <= 0 {
			return 0
		}
		score := tfn*math.Log2(tfn/lambda) +
			(lambda+1/(12*tfn)-tfn)*math.Log2(math.E) +
			0.5*math.Log2(2*math.Pi*tfn)
		return qfMult * (tfn / (tfn + 1)) * score
	}), nil
}
