package toc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/segment"
	"github.com/cinderfts/cinder/internal/storage"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	return sch
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := &TOC{
		Generation: 7,
		Schema:     testSchema(t),
		Segments: []segment.Info{
			{ID: "3f9a1c7b2e4d6a81", DocCount: 100, DelGeneration: 2},
			{ID: "aabbccddeeff0011", DocCount: 50, DelGeneration: 0},
		},
		CreatedUnixMicros: 1234567890,
	}

	blob := want.Encode()
	got, err := Decode(blob)
	require.NoError(t, err)

	require.Equal(t, want.Generation, got.Generation)
	require.Equal(t, want.CreatedUnixMicros, got.CreatedUnixMicros)
	require.Equal(t, want.Segments, got.Segments)
	require.Equal(t, want.Schema.FieldNames(), got.Schema.FieldNames())
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("notatoc-garbage-bytes"))
	require.Error(t, err)
}

func TestOpenNoGenerationReturnsTocNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)

	_, err = Open(store, dir, "myindex")
	require.Error(t, err)
}

func TestOpenFindsWrittenGeneration(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)

	want := &TOC{
		Generation:        3,
		Schema:            testSchema(t),
		Segments:          []segment.Info{{ID: "deadbeefdeadbeef", DocCount: 10, DelGeneration: 0}},
		CreatedUnixMicros: 42,
	}
	require.NoError(t, Write(store, "myindex", want))

	got, err := Open(store, dir, "myindex")
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Generation)
	require.Equal(t, want.Segments, got.Segments)
}

func TestLiveFileNamesAndOrphanedFiles(t *testing.T) {
	sch := testSchema(t)
	tocVal := &TOC{
		Generation:        5,
		Schema:            sch,
		Segments:          []segment.Info{{ID: "seg1", DocCount: 1, DelGeneration: 0}},
		CreatedUnixMicros: 1,
	}

	live := LiveFileNames("myindex", tocVal)
	require.True(t, live["_myindex_5.toc"])
	require.True(t, live["seg1.pst"])
	require.True(t, live["seg1.trm"])
	require.True(t, live["seg1.fln"])
	require.True(t, live["seg1.fdt"])
	require.True(t, live["seg1.del.0"])

	candidates := []string{"_myindex_5.toc", "seg1.pst", "seg0.pst", "seg0.trm", "_myindex_4.toc"}
	orphans := OrphanedFiles(candidates, live)
	require.ElementsMatch(t, []string{"seg0.pst", "seg0.trm", "_myindex_4.toc"}, orphans)
}
