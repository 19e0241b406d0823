package options

const (
	// DefaultDataDir is the Options.DataDir used when no WithDataDir
	// override is applied.
	DefaultDataDir = "/var/lib/cinder"

	// DefaultBlockLimit is the maximum number of postings packed into a
	// single posting block (spec.md §4.2's "blocklimit").
	DefaultBlockLimit = 128

	// DefaultLimitMB is the per-SegmentWriter in-memory budget, in
	// megabytes, before it is flushed and a new one started.
	DefaultLimitMB = 128

	// DefaultWaitForMerge controls whether IndexWriter.Commit blocks until
	// outstanding merges finish before publishing a new TOC generation.
	DefaultWaitForMerge = false

	// Tiered merge policy defaults (spec.md §4.10).
	DefaultMinMergeSize         uint64  = 8 * 1024 * 1024
	DefaultMaxMergeAtOnce               = 10
	DefaultSegmentsPerTier              = 10
	DefaultMaxMergedSegmentSize uint64  = 5 * 1024 * 1024 * 1024
	DefaultMaxMergeCount                = 3
	DefaultDeletionsWeight      float64 = 2.0
	// DefaultTierBase is the logarithm base "B" used when bucketing
	// segments into levels: level = floor(log_B(size / min_merge_size)).
	DefaultTierBase float64 = 2.0

	// DefaultScoringModel names the Weighting constructed when a search is
	// opened without an explicit one.
	DefaultScoringModel = ScoringBM25F

	// BM25F defaults, matching the common Okapi BM25 parameterization.
	DefaultBM25B  float64 = 0.75
	DefaultBM25K1 float64 = 1.2

	// PL2 defaults.
	DefaultPL2C float64 = 1.0

	// DefaultFieldBoost is the weight multiplier applied to a field's
	// contribution when the schema assigns it none explicitly.
	DefaultFieldBoost float64 = 1.0
)

// ScoringModel names one of the Weighting implementations in
// internal/scoring required by spec.md §4.7.
type ScoringModel string

const (
	ScoringFrequency ScoringModel = "frequency"
	ScoringTFIDF     ScoringModel = "tfidf"
	ScoringBM25F     ScoringModel = "bm25f"
	ScoringPL2       ScoringModel = "pl2"
)

// defaultOptions holds the baseline configuration handed back by
// NewDefaultOptions; With* funcs mutate a copy of it.
var defaultOptions = Options{
	DataDir: DefaultDataDir,
	WriterOptions: &writerOptions{
		LimitMB:      DefaultLimitMB,
		BlockLimit:   DefaultBlockLimit,
		WaitForMerge: DefaultWaitForMerge,
	},
	MergeOptions: &mergeOptions{
		MinMergeSize:         DefaultMinMergeSize,
		MaxMergeAtOnce:       DefaultMaxMergeAtOnce,
		SegmentsPerTier:      DefaultSegmentsPerTier,
		MaxMergedSegmentSize: DefaultMaxMergedSegmentSize,
		MaxMergeCount:        DefaultMaxMergeCount,
		DeletionsWeight:      DefaultDeletionsWeight,
		TierBase:             DefaultTierBase,
	},
	ScoringOptions: &scoringOptions{
		Model: DefaultScoringModel,
		BM25B:  DefaultBM25B,
		BM25K1: DefaultBM25K1,
		PL2C:   DefaultPL2C,
	},
	SchemaOptions: &schemaOptions{
		DefaultFieldBoost: DefaultFieldBoost,
	},
}

// NewDefaultOptions returns a value copy of the package's default Options.
func NewDefaultOptions() Options {
	opts := defaultOptions
	writer := *defaultOptions.WriterOptions
	merge := *defaultOptions.MergeOptions
	scoring := *defaultOptions.ScoringOptions
	schema := *defaultOptions.SchemaOptions
	opts.WriterOptions = &writer
	opts.MergeOptions = &merge
	opts.ScoringOptions = &scoring
	opts.SchemaOptions = &schema
	return opts
}
