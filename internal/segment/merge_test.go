package segment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/pkg/options"
)

func mergeTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, sch.AddField("rank", schema.NewNumericFieldType(32, true, false, true, true)))
	require.NoError(t, sch.AddField("note", schema.NewStoredFieldType()))
	return sch
}

func writeMergeSegment(t *testing.T, store, tmp storage.Storage, sch *schema.Schema, opts *options.Options, docs []*schema.Document) *Segment {
	t.Helper()
	w, err := NewWriter(store, tmp, sch, opts)
	require.NoError(t, err)
	for _, doc := range docs {
		require.NoError(t, w.AddDocument(doc))
	}
	info, err := w.Finish()
	require.NoError(t, err)
	seg, err := Open(store, sch, info)
	require.NoError(t, err)
	t.Cleanup(func() { seg.Close() })
	return seg
}

// TestMergeConservesLiveDocuments checks spec.md §8 invariant 7: the
// merged segment's live documents equal the union of its inputs' live
// documents, with deleted documents dropped and every other document's
// stored/indexed values intact.
func TestMergeConservesLiveDocuments(t *testing.T) {
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	tmp, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	sch := mergeTestSchema(t)
	opts := options.NewDefaultOptions()

	segA := writeMergeSegment(t, store, tmp, sch, &opts, []*schema.Document{
		schema.NewDocument().Set("title", "the quick fox").Set("rank", 1).Set("note", "a0"),
		schema.NewDocument().Set("title", "lazy dog").Set("rank", 2).Set("note", "a1"),
	})
	segB := writeMergeSegment(t, store, tmp, sch, &opts, []*schema.Document{
		schema.NewDocument().Set("title", "quick rabbit").Set("rank", 3).Set("note", "b0"),
		schema.NewDocument().Set("title", "sleepy cat").Set("rank", 4).Set("note", "b1"),
	})

	// Delete segA's doc 1 and segB's doc 0 before merging, leaving only
	// segA's doc 0 and segB's doc 1 live.
	segA.Delete(1)
	segB.Delete(0)

	info, err := Merge(store, tmp, sch, &opts, []*Segment{segA, segB})
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.DocCount)

	merged, err := Open(store, sch, info)
	require.NoError(t, err)
	defer merged.Close()

	require.Equal(t, uint64(2), merged.LiveCount())

	sf := merged.StoredFields()
	require.NotNil(t, sf)
	var notes []string
	for d := uint64(0); d < merged.DocCount(); d++ {
		values, err := sf.Get(d)
		require.NoError(t, err)
		notes = append(notes, values["note"].(string))
	}
	require.ElementsMatch(t, []string{"a0", "b1"}, notes)

	td := merged.TermDictionary("title")
	require.NotNil(t, td)
	require.True(t, td.Seek(termdict.Key{Term: []byte("quick")}))
	require.Equal(t, "quick", string(td.Key().Term))
	require.Equal(t, uint64(1), td.Value().DocFreq)

	require.False(t, td.Seek(termdict.Key{Term: []byte("lazy")}) && string(td.Key().Term) == "lazy")
}

// TestMergeDropsAllDeletedInput merges a segment with live documents
// against one that is entirely deleted, and checks the empty input
// contributes nothing.
func TestMergeDropsAllDeletedInput(t *testing.T) {
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	tmp, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	sch := mergeTestSchema(t)
	opts := options.NewDefaultOptions()

	segA := writeMergeSegment(t, store, tmp, sch, &opts, []*schema.Document{
		schema.NewDocument().Set("title", "alpha").Set("rank", 1).Set("note", "a0"),
	})
	segB := writeMergeSegment(t, store, tmp, sch, &opts, []*schema.Document{
		schema.NewDocument().Set("title", "beta").Set("rank", 2).Set("note", "b0"),
	})
	segB.Delete(0)

	info, err := Merge(store, tmp, sch, &opts, []*Segment{segA, segB})
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.DocCount)

	merged, err := Open(store, sch, info)
	require.NoError(t, err)
	defer merged.Close()

	sf := merged.StoredFields()
	values, err := sf.Get(0)
	require.NoError(t, err)
	require.Equal(t, "a0", values["note"])
}
