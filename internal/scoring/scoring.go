// Package scoring implements spec.md §4.7's Weighting/Scorer models:
// Frequency, TFIDF, BM25F, PL2, all sharing a WeightLengthScorer base
// that derives max_quality from a term's TermInfo bounds for block-max
// skipping, grounded in original_source/tests/test_scoring.py's
// Weighting/Scorer contract (a Weighting builds a Scorer bound to one
// field+term; the Scorer turns (weight, length) into a score) and
// spec.md §4.7's "Scorer computes score(matcher) from weight and
// length" wording.
package scoring

import (
	"math"

	"github.com/cinderfts/cinder/internal/matcher"
)

// CollectionStats is the slice of searcher/index-wide statistics a
// Weighting needs to build a Scorer, standing in for spec.md §4.7's
// "searcher" parameter. internal/searcher implements it for one segment
// (SegmentStats) and summed across segments (multiStats).
type CollectionStats interface {
	// DocCount returns the number of (non-deleted) documents searched.
	DocCount() uint64
	// DocFrequency returns how many documents contain term in field.
	DocFrequency(field string, term []byte) (uint64, error)
	// TotalTermFrequency returns the sum of term's weight across every
	// document in field (used by PL2's collection frequency term).
	TotalTermFrequency(field string, term []byte) (uint64, error)
	// FieldLengthSum returns the sum of field's length across every
	// document (dividing by DocCount gives the average length BM25F's
	// length-normalization term needs).
	FieldLengthSum(field string) (uint64, error)
}

// Weighting builds a Scorer for one (field, term) pair, and optionally
// rescales a document's final score, per spec.md §4.7.
type Weighting interface {
	// Scorer returns a Scorer for field/term given qf (the number of
	// times the term appears in the query itself, for query-side term
	// frequency boosting).
	Scorer(stats CollectionStats, field string, term []byte, qf int) (matcher.Scorer, error)
	// UseFinal reports whether the Collector must call Final after base
	// scoring (spec.md §4.7's use_final flag).
	UseFinal() bool
	// Final rescales docnum's base score. Only called when UseFinal is
	// true; the default embeddable Base.Final is the identity function.
	Final(docnum uint64, score float64) (float64, error)
}

// Base supplies the identity Final/UseFinal=false pair every concrete
// Weighting embeds, so only Weightings that actually override Final
// need to implement it (mirroring Python's default method + override
// pattern without needing an abstract base class).
type Base struct{}

func (Base) UseFinal() bool                               { return false }
func (Base) Final(docnum uint64, score float64) (float64, error) { return score, nil }

// WeightLengthScorer is the shared base every required model (Frequency,
// TFIDF, BM25F, PL2) builds on: it turns a per-model (weight, length)
// formula into a matcher.Scorer, and derives MaxQuality by evaluating
// that same formula at the term's loosest (max_weight, min_length)
// combination, per spec.md §4.7's "max_quality = score(max_weight,
// min_length)" bound.
type WeightLengthScorer struct {
	formula func(weight float32, length int) float64
}

// NewWeightLengthScorer wraps formula as a matcher.Scorer.
func NewWeightLengthScorer(formula func(weight float32, length int) float64) *WeightLengthScorer {
	return &WeightLengthScorer{formula: formula}
}

func (s *WeightLengthScorer) Score(weight float32, length int) float64 {
	return s.formula(weight, length)
}

// Quality evaluates the formula at the loosest weight/length in range:
// every monotonic-in-weight, monotonic-decreasing-in-length formula
// used here (Frequency, TF-IDF, BM25F, PL2) is maximized by the largest
// weight and the shortest length in the block's recorded bounds.
func (s *WeightLengthScorer) Quality(maxWeight float32, minLength, maxLength int) float64 {
	return s.formula(maxWeight, minLength)
}

// avgFieldLength divides a field's total length by the document count,
// guarding the zero-document case every model's formula needs.
func avgFieldLength(stats CollectionStats, field string) (float64, error) {
	n := stats.DocCount()
	if n == 0 {
		return 0, nil
	}
	sum, err := stats.FieldLengthSum(field)
	if err != nil {
		return 0, err
	}
	return float64(sum) / float64(n), nil
}

// idf is the classic inverse-document-frequency term TFIDF and BM25F
// both use: log(1 + (docCount - df + 0.5) / (df + 0.5)).
func idf(docCount, df uint64) float64 {
	if docCount == 0 {
		return 0
	}
	return math.Log1p((float64(docCount) - float64(df) + 0.5) / (float64(df) + 0.5))
}
