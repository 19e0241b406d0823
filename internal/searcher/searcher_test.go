package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/scoring"
	"github.com/cinderfts/cinder/internal/segment"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/pkg/options"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	return sch
}

func buildSegment(t *testing.T, store storage.Storage, sch *schema.Schema, docs []string) segment.Info {
	t.Helper()
	tmp, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	opts := options.NewDefaultOptions()
	w, err := segment.NewWriter(store, tmp, sch, &opts)
	require.NoError(t, err)

	for _, title := range docs {
		require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", title)))
	}
	info, err := w.Finish()
	require.NoError(t, err)
	return info
}

func TestSearchAcrossMultipleSegments(t *testing.T) {
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	sch := testSchema(t)

	info1 := buildSegment(t, store, sch, []string{"the quick brown fox", "the lazy dog sleeps"})
	info2 := buildSegment(t, store, sch, []string{"quick quick quick rabbit"})

	s, err := Open(store, sch, []segment.Info{info1, info2}, scoring.NewBM25F())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.Equal(t, uint64(3), s.DocCount())

	q := query.NewTerm("title", []byte("quick"))
	results, err := s.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Equal(t, 2, results.Total)
	require.Len(t, results.Hits, 2)

	// The doc in the second segment has three occurrences of "quick" and
	// should outscore the single-occurrence hit in the first segment.
	require.Equal(t, uint64(2), results.Hits[0].DocID)
}

func TestSearchRespectsDeletions(t *testing.T) {
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	sch := testSchema(t)

	info := buildSegment(t, store, sch, []string{"the quick brown fox", "the lazy dog sleeps"})
	seg, err := segment.Open(store, sch, info)
	require.NoError(t, err)
	seg.Delete(0)
	require.NoError(t, seg.WriteDeletions(1))
	seg.Close()
	info.DelGeneration = 1

	s, err := Open(store, sch, []segment.Info{info}, scoring.NewBM25F())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.Equal(t, uint64(1), s.DocCount())

	q := query.Every
	results, err := s.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	require.Equal(t, uint64(1), results.Hits[0].DocID)
}

func TestMatchingDocsForDeleteByQuery(t *testing.T) {
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	sch := testSchema(t)

	info := buildSegment(t, store, sch, []string{"the quick brown fox", "the lazy dog sleeps", "quick again"})
	seg, err := segment.Open(store, sch, info)
	require.NoError(t, err)
	t.Cleanup(func() { seg.Close() })

	qm := NewQueryMatcher(scoring.NewBM25F())
	bm, err := qm.MatchingDocs(seg, query.NewTerm("title", []byte("quick")))
	require.NoError(t, err)
	require.Equal(t, uint64(2), bm.GetCardinality())
	require.True(t, bm.Contains(0))
	require.True(t, bm.Contains(2))
}

func TestSearchTimeLimitReturnsPartialResults(t *testing.T) {
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	sch := testSchema(t)

	info := buildSegment(t, store, sch, []string{"quick", "quick", "quick"})

	s, err := Open(store, sch, []segment.Info{info}, scoring.NewBM25F())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := s.Search(ctx, query.Every, 10)
	require.Error(t, err)
	require.True(t, results.Truncated)
}
