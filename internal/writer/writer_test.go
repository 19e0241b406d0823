package writer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/internal/toc"
	"github.com/cinderfts/cinder/pkg/options"
)

func writerTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, sch.AddField("note", schema.NewStoredFieldType()))
	return sch
}

func openTestWriter(t *testing.T, store storage.Storage, sch *schema.Schema, fns ...options.OptionFunc) *IndexWriter {
	t.Helper()
	opts, err := options.Apply(fns...)
	require.NoError(t, err)

	w, err := Open(&Config{
		Store:     store,
		IndexName: "products",
		Schema:    sch,
		Options:   opts,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		w.Close()
	})
	return w
}

func TestOpenBootstrapsAndCommitPublishesTOC(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	w := openTestWriter(t, store, sch, options.WithDataDir(dir))

	doc := schema.NewDocument().Set("title", "the quick fox").Set("note", "n0")
	require.NoError(t, w.AddDocument(doc))
	require.NoError(t, w.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)
	require.Equal(t, int64(1), published.Generation)
	require.Len(t, published.Segments, 1)
	require.Equal(t, uint64(1), published.Segments[0].DocCount)
}

func TestReopenSeesPreviouslyCommittedSegments(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	w := openTestWriter(t, store, sch, options.WithDataDir(dir))
	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", "n0")))
	require.NoError(t, w.Commit(CommitOptions{}))
	require.NoError(t, w.Close())

	store2, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	opts, err := options.Apply(options.WithDataDir(dir))
	require.NoError(t, err)

	w2, err := Open(&Config{Store: store2, IndexName: "products", Options: opts})
	require.NoError(t, err)
	defer w2.Close()

	require.Equal(t, int64(1), w2.generation)
	require.Equal(t, 1, w2.segList.Len())
}

func TestDeleteByTermRemovesDocumentFromSegmentList(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	w := openTestWriter(t, store, sch, options.WithDataDir(dir))
	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", "n0")))
	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "beta").Set("note", "n1")))
	require.NoError(t, w.Commit(CommitOptions{}))

	require.NoError(t, w.DeleteByTerm("title", []byte("alpha")))
	require.NoError(t, w.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)
	require.Len(t, published.Segments, 1)
	require.Equal(t, uint64(2), published.Segments[0].DocCount)
	require.Equal(t, uint64(1), published.Segments[0].DelGeneration)
}

func TestOptimizeMergesAllSegments(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	w := openTestWriter(t, store, sch, options.WithDataDir(dir))
	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", "n0")))
	require.NoError(t, w.Commit(CommitOptions{}))

	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "beta").Set("note", "n1")))
	require.NoError(t, w.Commit(CommitOptions{Optimize: true, WaitForMerge: true}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)
	require.Len(t, published.Segments, 1)
	require.Equal(t, uint64(2), published.Segments[0].DocCount)
}

func TestClosedWriterRejectsOperations(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	opts, err := options.Apply(options.WithDataDir(dir))
	require.NoError(t, err)
	w, err := Open(&Config{Store: store, IndexName: "products", Schema: sch, Options: opts})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close()) // idempotent

	require.ErrorIs(t, w.AddDocument(schema.NewDocument()), ErrWriterClosed)
	require.ErrorIs(t, w.DeleteByQuery(query.Every), ErrWriterClosed)
	require.ErrorIs(t, w.Commit(CommitOptions{}), ErrWriterClosed)
}

func TestSecondWriterCannotAcquireLock(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	opts, err := options.Apply(options.WithDataDir(dir))
	require.NoError(t, err)

	w1, err := Open(&Config{Store: store, IndexName: "products", Schema: sch, Options: opts})
	require.NoError(t, err)
	defer w1.Close()

	store2, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	_, err = Open(&Config{Store: store2, IndexName: "products", Schema: sch, Options: opts})
	require.Error(t, err)
}

func TestAddDocumentFlushesOnBudget(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	opts, err := options.Apply(options.WithDataDir(dir), options.WithWriterLimitMB(1))
	require.NoError(t, err)

	w, err := Open(&Config{Store: store, IndexName: "products", Schema: sch, Options: opts})
	require.NoError(t, err)
	defer w.Close()

	big := make([]byte, 2*1024*1024)
	for i := range big {
		big[i] = 'a'
	}

	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", string(big))))
	// The oversized document alone already crosses the 1MB budget, so
	// AddDocument should have flushed it into its own segment.
	require.Equal(t, 1, w.segList.Len())
	require.Nil(t, w.current)

	require.NoError(t, w.AddDocument(schema.NewDocument().Set("title", "beta").Set("note", "n1")))
	require.NoError(t, w.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)
	require.NotEmpty(t, published.Segments)

	var total uint64
	for _, s := range published.Segments {
		total += s.DocCount
	}
	require.Equal(t, uint64(2), total)
}

func TestCommitWithNoDocumentsPublishesEmptyGeneration(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	w := openTestWriter(t, store, sch, options.WithDataDir(dir))
	require.NoError(t, w.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)
	require.Equal(t, int64(1), published.Generation)
	require.Empty(t, published.Segments)
}
