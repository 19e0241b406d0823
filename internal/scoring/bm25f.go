package scoring

import "github.com/cinderfts/cinder/internal/matcher"

// DefaultB and DefaultK1 are BM25F's standard length-normalization and
// term-frequency-saturation constants.
const (
	DefaultB  = 0.75
	DefaultK1 = 1.2
)

// BM25FWeighting is Robertson/Zaragoza's BM25F model, per spec.md
// §4.7's required model list. B and K1 default to the usual Okapi
// values; FieldB lets a caller tune length normalization per field
// (BM25F's defining feature over plain BM25), falling back to B when a
// field has no override.
type BM25FWeighting struct {
	Base
	B      float64
	K1     float64
	FieldB map[string]float64
}

// NewBM25F builds a BM25FWeighting with the standard B/K1 constants.
func NewBM25F() *BM25FWeighting {
	return &BM25FWeighting{B: DefaultB, K1: DefaultK1}
}

func (w *BM25FWeighting) fieldB(field string) float64 {
	if w.FieldB != nil {
		if b, ok := w.FieldB[field]; ok {
			return b
		}
	}
	return w.B
}

func (w *BM25FWeighting) Scorer(stats CollectionStats, field string, term []byte, qf int) (matcher.Scorer, error) {
	df, err := stats.DocFrequency(field, term)
	if err != nil {
		return nil, err
	}
	avgLen, err := avgFieldLength(stats, field)
	if err != nil {
		return nil, err
	}
	idfScore := idf(stats.DocCount(), df)
	k1 := w.K1
	b := w.fieldB(field)
	qfMult := float64(qf)

	return NewWeightLengthScorer(func(weight float32, length int) float64 {
		if avgLen == 0 {
			avgLen = 1
		}
		tf := float64(weight)
		norm := (1 - b) + b*(float64(length)/avgLen)
		return idfScore * qfMult * ((k1+1)*tf)/(k1*norm+tf)
	}), nil
}
