package writer

import (
	"sync"
	"sync/atomic"

	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/segment"
)

// parallelShard is one independent internal/segment.Writer pipeline: its
// own buffered segment, doc count, and memory estimate, guarded by its
// own mutex so flushing one shard never blocks AddDocument calls routed
// to another.
type parallelShard struct {
	mu       sync.Mutex
	current  *segment.Writer
	count    uint64
	estBytes uint64
}

// ParallelIndexWriter is spec.md §4.11's "optional multi-process/thread
// parallelism" line, grounded in original_source/src/whoosh/writing/
// multiwriting.py's AsyncWriter/MultiWriter pair: several independent
// segment.Writer pipelines accept documents concurrently, each flushing
// its own segments under its own memory budget, and Commit fans every
// shard's segments into the one shared SegmentList before running the
// normal merge/publish pipeline. Unlike multiwriting.py's worker
// processes, shards here are goroutine-safe buffers distinguished only
// by an atomic round-robin counter — there is one process, one
// WRITELOCK, and one eventual TOC generation either way.
//
// ParallelIndexWriter embeds *IndexWriter, so DeleteByTerm, DeleteByQuery,
// and Close are the single writer's own methods unchanged; only
// AddDocument and Commit are overridden to add the shard fan-out/fan-in.
type ParallelIndexWriter struct {
	*IndexWriter

	shards []*parallelShard
	next   atomic.Uint64
}

// OpenParallel opens an index the same way Open does, then wraps it with
// shards independent ingestion pipelines. shards below 1 is treated as 1
// (a degenerate single-shard ParallelIndexWriter, behaviorally identical
// to a plain IndexWriter).
func OpenParallel(cfg *Config, shards int) (*ParallelIndexWriter, error) {
	if shards < 1 {
		shards = 1
	}

	iw, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	pw := &ParallelIndexWriter{
		IndexWriter: iw,
		shards:      make([]*parallelShard, shards),
	}
	for i := range pw.shards {
		pw.shards[i] = &parallelShard{}
	}
	return pw, nil
}

// AddDocument routes doc to one of pw's shards by round-robin and runs
// the same buffer/budget-flush logic IndexWriter.AddDocument uses,
// scoped to that shard alone. Safe to call concurrently from multiple
// goroutines: distinct shards never contend, and the shared SegmentList
// a budget flush appends to has its own internal locking.
func (pw *ParallelIndexWriter) AddDocument(doc *schema.Document) error {
	if pw.closed.Load() {
		return ErrWriterClosed
	}

	idx := pw.next.Add(1) % uint64(len(pw.shards))
	shard := pw.shards[idx]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if shard.current == nil {
		cw, err := segment.NewWriter(pw.store, pw.tmp, pw.schema, &pw.opts)
		if err != nil {
			return err
		}
		shard.current = cw
	}

	if err := shard.current.AddDocument(doc); err != nil {
		return err
	}
	shard.count++
	shard.estBytes += estimateDocumentSize(doc)

	limit := pw.opts.WriterOptions.LimitMB * 1024 * 1024
	if limit > 0 && shard.estBytes >= limit {
		return pw.flushShardLocked(shard)
	}
	return nil
}

// flushShardLocked finishes shard's buffered segment.Writer (if it holds
// any documents) and adds the resulting segment to the shared
// SegmentList. Called with shard.mu held.
func (pw *ParallelIndexWriter) flushShardLocked(shard *parallelShard) error {
	if shard.current == nil || shard.count == 0 {
		return nil
	}

	info, err := shard.current.Finish()
	shard.current = nil
	shard.count = 0
	shard.estBytes = 0
	if err != nil {
		return err
	}

	seg, err := segment.Open(pw.store, pw.schema, info)
	if err != nil {
		return err
	}

	pw.mu.Lock()
	pw.segList.AddSegment(seg)
	pw.mu.Unlock()
	return nil
}

// Commit is the fan-in point: every shard's buffered segment is flushed
// into the shared SegmentList first, then the embedded IndexWriter's own
// Commit runs unchanged, treating all shards' segments identically to a
// single writer's.
func (pw *ParallelIndexWriter) Commit(opts CommitOptions) error {
	if pw.closed.Load() {
		return ErrWriterClosed
	}

	for _, shard := range pw.shards {
		shard.mu.Lock()
		err := pw.flushShardLocked(shard)
		shard.mu.Unlock()
		if err != nil {
			return err
		}
	}

	return pw.IndexWriter.Commit(opts)
}
