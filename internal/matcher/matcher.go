// Package matcher implements the matcher algebra of spec.md §4.6: a
// stateful cursor over the docids a (sub)query tree produces, composed
// from a handful of combinator matchers (Intersection, Union, AndNot,
// AndMaybe, Require, DisjunctionMax, Inverse, Constant, Wrapping) on top
// of the leaf TermMatcher, grounded in
// original_source/src/whoosh/matching's Matcher hierarchy but expressed
// as a Go interface plus concrete structs rather than a class tree.
package matcher

import "github.com/cinderfts/cinder/internal/postings"

// Scorer computes a document's score from its weight and field length,
// plus the monotonic upper-bound quality spec.md §4.7 requires for
// block-max skipping. internal/scoring's Frequency/TFIDF/BM25F/PL2
// Weighting types each produce a Scorer bound to one (field, term).
type Scorer interface {
	// Score returns the current posting's contribution given its raw
	// weight and field length.
	Score(weight float32, length int) float64
	// Quality returns an upper bound on Score for any posting whose
	// weight/length fall within [0, maxWeight] x [minLength, maxLength].
	Quality(maxWeight float32, minLength, maxLength int) float64
}

// Matcher is the cursor contract spec.md §4.6 describes. All matchers
// start positioned on their first matching docid, if any.
type Matcher interface {
	// IsActive reports whether ID is currently valid.
	IsActive() bool
	// ID returns the current docid. Valid only while IsActive.
	ID() uint64
	// Next advances to the next docid, returning an error only on a
	// genuine I/O failure (becoming inactive is not an error).
	Next() (bool, error)
	// SkipTo advances to the first docid >= target.
	SkipTo(target uint64) (bool, error)
	// Score returns the current docid's score.
	Score() float64
	// Weight returns the current docid's raw weight (pre-scoring),
	// used by compounds like AndMaybe/Union that sum child scores
	// rather than re-deriving them.
	Weight() float32
	// Positions returns the current docid's token positions, or nil if
	// the matcher does not carry them (compounds without a single
	// natural position source return nil).
	Positions() []int
	// SupportsQuality reports whether BlockQuality/SkipToQuality are
	// meaningful for this matcher (false for matchers, like Inverse,
	// with no natural block-level upper bound).
	SupportsQuality() bool
	// MaxQuality returns the matcher's overall upper-bound score,
	// valid for the matcher's full remaining lifetime.
	MaxQuality() float64
	// BlockQuality returns an upper bound on the score of postings up
	// to and including the next quality boundary (a block, for a
	// TermMatcher; for a compound, combined from its children's: summed
	// by Intersection, the maximum for Union).
	BlockQuality() float64
	// SkipToQuality advances until BlockQuality() >= min or the
	// matcher is exhausted, returning whether it is still active.
	SkipToQuality(min float64) (bool, error)
}

// CharSpan re-exports postings.CharSpan so callers needn't import
// internal/postings solely for span-aware matchers.
type CharSpan = postings.CharSpan

// nullMatcher is the always-exhausted Matcher, returned by combinators
// when a child list is empty or every child has proven irrelevant.
type nullMatcher struct{}

// Null is the shared always-exhausted Matcher instance.
var Null Matcher = nullMatcher{}

func (nullMatcher) IsActive() bool                { return false }
func (nullMatcher) ID() uint64                     { return 0 }
func (nullMatcher) Next() (bool, error)            { return false, nil }
func (nullMatcher) SkipTo(uint64) (bool, error)    { return false, nil }
func (nullMatcher) Score() float64                 { return 0 }
func (nullMatcher) Weight() float32                { return 0 }
func (nullMatcher) Positions() []int               { return nil }
func (nullMatcher) SupportsQuality() bool          { return true }
func (nullMatcher) MaxQuality() float64            { return 0 }
func (nullMatcher) BlockQuality() float64          { return 0 }
func (nullMatcher) SkipToQuality(float64) (bool, error) { return false, nil }
