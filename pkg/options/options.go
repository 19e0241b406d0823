// Package options provides data structures and functions for configuring a
// cinder index. It defines the tunables named in spec.md §4.10-§4.11: the
// writer's memory budget and block size, the tiered merge policy's
// thresholds, the default scoring model, and schema-level defaults.
package options

import (
	"strings"

	"github.com/go-playground/validator/v10"

	cerrors "github.com/cinderfts/cinder/pkg/errors"
)

var validate = validator.New()

// writerOptions configures the IndexWriter / SegmentWriter pipeline
// (spec.md §4.11).
type writerOptions struct {
	// LimitMB bounds a SegmentWriter's resident memory before it is
	// flushed to disk and a fresh one started.
	//
	//  - Default: 128
	//  - Minimum: 1
	LimitMB uint64 `json:"limitMB" validate:"gte=1"`

	// BlockLimit is the maximum number of postings packed into a single
	// posting block before a new one is started (spec.md §4.2).
	//
	//  - Default: 128
	//  - Minimum: 1
	//  - Maximum: 65535 (block header count field is u16)
	BlockLimit int `json:"blockLimit" validate:"gte=1,lte=65535"`

	// WaitForMerge, when true, makes Commit block until any merges it
	// triggered have integrated before publishing the new TOC generation.
	WaitForMerge bool `json:"waitForMerge"`
}

// mergeOptions parameterizes the tiered merge policy (spec.md §4.10).
type mergeOptions struct {
	// MinMergeSize is the smallest segment size (bytes) used as the base
	// of the tier-level computation; segments at or below it are always
	// level 0 candidates.
	MinMergeSize uint64 `json:"minMergeSize" validate:"gte=1"`

	// MaxMergeAtOnce bounds how many segments from one level are proposed
	// for a single merge.
	MaxMergeAtOnce int `json:"maxMergeAtOnce" validate:"gte=2"`

	// SegmentsPerTier is the number of segments tolerated per level
	// before that level becomes a merge candidate.
	SegmentsPerTier int `json:"segmentsPerTier" validate:"gte=2"`

	// MaxMergedSegmentSize caps the total size of a proposed merge;
	// candidate sets exceeding it are skipped.
	MaxMergedSegmentSize uint64 `json:"maxMergedSegmentSize" validate:"gte=1"`

	// MaxMergeCount bounds how many merges may be in flight at once.
	MaxMergeCount int `json:"maxMergeCount" validate:"gte=1"`

	// DeletionsWeight scales a segment's effective size up in proportion
	// to its deleted-docs fraction, biasing the policy toward reclaiming
	// space held by tombstoned documents.
	DeletionsWeight float64 `json:"deletionsWeight" validate:"gte=0"`

	// TierBase is the logarithm base used to bucket segments into levels.
	TierBase float64 `json:"tierBase" validate:"gt=1"`
}

// scoringOptions selects and parameterizes the default Weighting
// constructed by a freshly opened Searcher (spec.md §4.7).
type scoringOptions struct {
	// Model names the Weighting used when a search does not supply its own.
	Model ScoringModel `json:"model" validate:"oneof=frequency tfidf bm25f pl2"`

	// BM25B and BM25K1 parameterize the BM25F Weighting.
	BM25B  float64 `json:"bm25b" validate:"gte=0,lte=1"`
	BM25K1 float64 `json:"bm25k1" validate:"gte=0"`

	// PL2C parameterizes the PL2 Weighting's term-frequency normalization.
	PL2C float64 `json:"pl2c" validate:"gt=0"`
}

// schemaOptions holds schema-level defaults applied when a field's
// definition does not override them.
type schemaOptions struct {
	// DefaultFieldBoost is the weight multiplier applied to a field when
	// its FieldType does not specify its own.
	DefaultFieldBoost float64 `json:"defaultFieldBoost" validate:"gt=0"`
}

// Options collects every tunable needed to open or build a cinder index.
type Options struct {
	// DataDir is the base path under which segment and TOC files live
	// when the directory-backed Storage implementation is used.
	//
	// Default: "/var/lib/cinder"
	DataDir string `json:"dataDir" validate:"required"`

	// WriterOptions configures the writer pipeline's memory budget and
	// block size.
	WriterOptions *writerOptions `json:"writerOptions" validate:"required"`

	// MergeOptions configures the tiered merge policy.
	MergeOptions *mergeOptions `json:"mergeOptions" validate:"required"`

	// ScoringOptions selects the default scoring model and its parameters.
	ScoringOptions *scoringOptions `json:"scoringOptions" validate:"required"`

	// SchemaOptions holds schema-level defaults.
	SchemaOptions *schemaOptions `json:"schemaOptions" validate:"required"`
}

// Validate runs struct-tag validation over Options and translates the first
// failure into a *cerrors.ValidationError, matching the convention already
// established in pkg/errors/validation.go.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return cerrors.NewConfigurationValidationError(fe.Namespace(), fe.Tag())
		}
		return cerrors.NewConfigurationValidationError("options", err.Error())
	}
	return nil
}

// OptionFunc is a function type that modifies an index's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies the package's full set of default values.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		defaults := NewDefaultOptions()
		*o = defaults
	}
}

// WithDataDir sets the base data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithWriterLimitMB sets the per-SegmentWriter memory budget, in megabytes.
func WithWriterLimitMB(limitMB uint64) OptionFunc {
	return func(o *Options) {
		if limitMB > 0 {
			o.WriterOptions.LimitMB = limitMB
		}
	}
}

// WithBlockLimit sets the maximum postings packed per posting block.
func WithBlockLimit(limit int) OptionFunc {
	return func(o *Options) {
		if limit > 0 && limit <= 65535 {
			o.WriterOptions.BlockLimit = limit
		}
	}
}

// WithWaitForMerge controls whether Commit blocks on outstanding merges.
func WithWaitForMerge(wait bool) OptionFunc {
	return func(o *Options) {
		o.WriterOptions.WaitForMerge = wait
	}
}

// WithMergePolicy overrides the tiered merge policy's thresholds. Any zero
// value in the struct is left at its current setting.
func WithMergePolicy(minMergeSize uint64, maxMergeAtOnce, segmentsPerTier int, maxMergedSegmentSize uint64, maxMergeCount int, deletionsWeight float64) OptionFunc {
	return func(o *Options) {
		m := o.MergeOptions
		if minMergeSize > 0 {
			m.MinMergeSize = minMergeSize
		}
		if maxMergeAtOnce > 0 {
			m.MaxMergeAtOnce = maxMergeAtOnce
		}
		if segmentsPerTier > 0 {
			m.SegmentsPerTier = segmentsPerTier
		}
		if maxMergedSegmentSize > 0 {
			m.MaxMergedSegmentSize = maxMergedSegmentSize
		}
		if maxMergeCount > 0 {
			m.MaxMergeCount = maxMergeCount
		}
		if deletionsWeight > 0 {
			m.DeletionsWeight = deletionsWeight
		}
	}
}

// WithScoringModel selects the default Weighting constructed by a Searcher.
func WithScoringModel(model ScoringModel) OptionFunc {
	return func(o *Options) {
		switch model {
		case ScoringFrequency, ScoringTFIDF, ScoringBM25F, ScoringPL2:
			o.ScoringOptions.Model = model
		}
	}
}

// WithBM25Params overrides the BM25F Weighting's b and k1 parameters.
func WithBM25Params(b, k1 float64) OptionFunc {
	return func(o *Options) {
		if b >= 0 && b <= 1 {
			o.ScoringOptions.BM25B = b
		}
		if k1 >= 0 {
			o.ScoringOptions.BM25K1 = k1
		}
	}
}

// WithPL2C overrides the PL2 Weighting's c parameter.
func WithPL2C(c float64) OptionFunc {
	return func(o *Options) {
		if c > 0 {
			o.ScoringOptions.PL2C = c
		}
	}
}

// WithDefaultFieldBoost overrides the schema-level default field boost.
func WithDefaultFieldBoost(boost float64) OptionFunc {
	return func(o *Options) {
		if boost > 0 {
			o.SchemaOptions.DefaultFieldBoost = boost
		}
	}
}

// Apply builds an Options value from the package defaults overridden by fns,
// in order, and validates the result.
func Apply(fns ...OptionFunc) (Options, error) {
	opts := NewDefaultOptions()
	for _, fn := range fns {
		fn(&opts)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
