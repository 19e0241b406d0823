package writer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/internal/toc"
	"github.com/cinderfts/cinder/pkg/options"
)

func openTestParallelWriter(t *testing.T, store storage.Storage, sch *schema.Schema, shards int, fns ...options.OptionFunc) *ParallelIndexWriter {
	t.Helper()
	opts, err := options.Apply(fns...)
	require.NoError(t, err)

	pw, err := OpenParallel(&Config{
		Store:     store,
		IndexName: "products",
		Schema:    sch,
		Options:   opts,
	}, shards)
	require.NoError(t, err)
	t.Cleanup(func() {
		pw.Close()
	})
	return pw
}

func TestParallelWriterDistributesAcrossShards(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	pw := openTestParallelWriter(t, store, sch, 4, options.WithDataDir(dir))

	for i := 0; i < 4; i++ {
		require.NoError(t, pw.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", "n")))
	}

	seen := 0
	for _, shard := range pw.shards {
		if shard.current != nil {
			seen++
		}
	}
	require.Equal(t, 4, seen, "each shard should have buffered exactly one document")
}

func TestParallelWriterCommitFansInEverySegment(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	pw := openTestParallelWriter(t, store, sch, 3, options.WithDataDir(dir))

	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			doc := schema.NewDocument().Set("title", "alpha").Set("note", "n")
			require.NoError(t, pw.AddDocument(doc))
		}(i)
	}
	wg.Wait()

	require.NoError(t, pw.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)

	var total uint64
	for _, s := range published.Segments {
		total += s.DocCount
	}
	require.Equal(t, uint64(9), total)

	for _, shard := range pw.shards {
		require.Nil(t, shard.current)
		require.Zero(t, shard.count)
	}
}

func TestParallelWriterBudgetFlushesIndependentShards(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	pw := openTestParallelWriter(t, store, sch, 2, options.WithDataDir(dir), options.WithWriterLimitMB(1))

	big := make([]byte, 2*1024*1024)
	for i := range big {
		big[i] = 'a'
	}

	require.NoError(t, pw.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", string(big))))
	require.NoError(t, pw.AddDocument(schema.NewDocument().Set("title", "beta").Set("note", "n1")))

	require.NoError(t, pw.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)

	var total uint64
	for _, s := range published.Segments {
		total += s.DocCount
	}
	require.Equal(t, uint64(2), total)
}

func TestParallelWriterSingleShardDegeneratesCleanly(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	pw := openTestParallelWriter(t, store, sch, 0, options.WithDataDir(dir))
	require.Len(t, pw.shards, 1)

	require.NoError(t, pw.AddDocument(schema.NewDocument().Set("title", "alpha").Set("note", "n0")))
	require.NoError(t, pw.Commit(CommitOptions{}))

	published, err := toc.Open(store, dir, "products")
	require.NoError(t, err)
	require.Len(t, published.Segments, 1)
	require.Equal(t, uint64(1), published.Segments[0].DocCount)
}

func TestParallelWriterClosedRejectsOperations(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	sch := writerTestSchema(t)

	opts, err := options.Apply(options.WithDataDir(dir))
	require.NoError(t, err)
	pw, err := OpenParallel(&Config{Store: store, IndexName: "products", Schema: sch, Options: opts}, 2)
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	require.ErrorIs(t, pw.AddDocument(schema.NewDocument()), ErrWriterClosed)
	require.ErrorIs(t, pw.Commit(CommitOptions{}), ErrWriterClosed)
}
