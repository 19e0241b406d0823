package seginfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSegmentID(t *testing.T) {
	id, err := NewSegmentID()
	require.NoError(t, err)
	assert.Len(t, id, segmentIDBytes*2)

	other, err := NewSegmentID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestSegmentFileNameRoundTrip(t *testing.T) {
	cases := []struct {
		segmentID string
		ext       string
		wantExt   string
	}{
		{"3f9a1c7b2e4d6a81", "pst", "pst"},
		{"3f9a1c7b2e4d6a81", ".trm", "trm"},
	}

	for _, c := range cases {
		name := SegmentFileName(c.segmentID, c.ext)
		gotID, gotExt, err := ParseSegmentFileName(name)
		require.NoError(t, err)
		assert.Equal(t, c.segmentID, gotID)
		assert.Equal(t, c.wantExt, gotExt)
	}
}

func TestParseSegmentFileNameInvalid(t *testing.T) {
	_, _, err := ParseSegmentFileName("noextension")
	assert.Error(t, err)
}

func TestTOCFileNameRoundTrip(t *testing.T) {
	name := TOCFileName("products", 17)
	assert.Equal(t, "_products_17.toc", name)

	indexName, generation, err := ParseTOCFileName(name)
	require.NoError(t, err)
	assert.Equal(t, "products", indexName)
	assert.EqualValues(t, 17, generation)
}

func TestParseTOCFileNameInvalid(t *testing.T) {
	_, _, err := ParseTOCFileName("products_17.toc")
	assert.Error(t, err)

	_, _, err = ParseTOCFileName("_products_notanumber.toc")
	assert.Error(t, err)
}

func TestFindLatestTOCBootstrap(t *testing.T) {
	dir := t.TempDir()
	path, generation, err := FindLatestTOC(dir, "products")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, generation)
}

func TestFindLatestTOCPicksHighestGeneration(t *testing.T) {
	dir := t.TempDir()
	for _, gen := range []int64{1, 2, 10, 3} {
		f := filepath.Join(dir, TOCFileName("products", gen))
		require.NoError(t, os.WriteFile(f, []byte("toc"), 0644))
	}
	// An unrelated index's TOC must not interfere with the search.
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOCFileName("other", 99)), []byte("toc"), 0644))

	path, generation, err := FindLatestTOC(dir, "products")
	require.NoError(t, err)
	assert.EqualValues(t, 10, generation)
	assert.Equal(t, filepath.Join(dir, TOCFileName("products", 10)), path)
}
