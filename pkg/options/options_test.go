package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptionsIsValid(t *testing.T) {
	opts := NewDefaultOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, DefaultDataDir, opts.DataDir)
	assert.Equal(t, DefaultBlockLimit, opts.WriterOptions.BlockLimit)
	assert.Equal(t, ScoringBM25F, opts.ScoringOptions.Model)
}

func TestNewDefaultOptionsAreIndependentCopies(t *testing.T) {
	a := NewDefaultOptions()
	b := NewDefaultOptions()

	a.WriterOptions.LimitMB = 4096
	a.MergeOptions.MaxMergeCount = 99

	assert.NotEqual(t, a.WriterOptions.LimitMB, b.WriterOptions.LimitMB)
	assert.NotEqual(t, a.MergeOptions.MaxMergeCount, b.MergeOptions.MaxMergeCount)
}

func TestApplyWithOverrides(t *testing.T) {
	opts, err := Apply(
		WithDataDir("/tmp/cinder-test"),
		WithBlockLimit(256),
		WithScoringModel(ScoringPL2),
		WithPL2C(2.5),
	)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cinder-test", opts.DataDir)
	assert.Equal(t, 256, opts.WriterOptions.BlockLimit)
	assert.Equal(t, ScoringPL2, opts.ScoringOptions.Model)
	assert.Equal(t, 2.5, opts.ScoringOptions.PL2C)
}

func TestValidateRejectsInvalidBlockLimit(t *testing.T) {
	opts := NewDefaultOptions()
	// Force an out-of-range value directly, bypassing the guarded With* funcs,
	// to exercise Validate()'s struct-tag checking.
	opts.WriterOptions.BlockLimit = 0
	assert.Error(t, opts.Validate())
}

func TestWithBlockLimitIgnoresOutOfRangeValues(t *testing.T) {
	opts := NewDefaultOptions()
	before := opts.WriterOptions.BlockLimit
	WithBlockLimit(0)(&opts)
	WithBlockLimit(100000)(&opts)
	assert.Equal(t, before, opts.WriterOptions.BlockLimit)
}

func TestWithMergePolicyLeavesZeroFieldsUntouched(t *testing.T) {
	opts := NewDefaultOptions()
	originalSegmentsPerTier := opts.MergeOptions.SegmentsPerTier

	WithMergePolicy(0, 5, 0, 0, 2, 0)(&opts)

	assert.Equal(t, originalSegmentsPerTier, opts.MergeOptions.SegmentsPerTier)
	assert.Equal(t, 5, opts.MergeOptions.MaxMergeAtOnce)
	assert.Equal(t, 2, opts.MergeOptions.MaxMergeCount)
}
