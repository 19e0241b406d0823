// Package cinder is the embeddable entry point onto a segmented
// full-text index: a single package tying together schema definition,
// document indexing, commit/merge orchestration, and search behind one
// Index type, so an application never needs to import internal/writer,
// internal/searcher, or internal/storage directly.
package cinder

import (
	"context"
	"sync"

	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/scoring"
	"github.com/cinderfts/cinder/internal/searcher"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/internal/toc"
	"github.com/cinderfts/cinder/internal/writer"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/logger"
	"github.com/cinderfts/cinder/pkg/options"
)

// Index is the primary entry point for interacting with a cinder
// full-text index. It encapsulates the IndexWriter responsible for
// indexing and commit/merge orchestration, the Storage the index's
// files live under, and a lazily (re)opened Searcher kept in step with
// the latest published TOC generation.
type Index struct {
	store     storage.Storage
	indexName string
	options   options.Options
	weighting scoring.Weighting

	writer *writer.IndexWriter

	mu         sync.Mutex
	schema     *schema.Schema
	generation int64
	reader     *searcher.Searcher
}

// Create opens a brand-new index named indexName under the resolved
// Options' DataDir, defined by sch, failing if indexName already has a
// published TOC generation there. On success it publishes an empty first
// generation, so the index exists from then on.
func Create(service, indexName string, sch *schema.Schema, opts ...options.OptionFunc) (*Index, error) {
	return open(service, indexName, sch, true, opts...)
}

// Open opens an existing index named indexName, using the schema
// recorded in its own TOC.
func Open(service, indexName string, opts ...options.OptionFunc) (*Index, error) {
	return open(service, indexName, nil, false, opts...)
}

func open(service, indexName string, sch *schema.Schema, create bool, fns ...options.OptionFunc) (*Index, error) {
	log := logger.New(service)

	resolved, err := options.Apply(fns...)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewDirectoryStorage(resolved.DataDir, log)
	if err != nil {
		return nil, err
	}

	_, tocErr := toc.Open(store, resolved.DataDir, indexName)
	exists := tocErr == nil
	if !exists && cerrors.GetErrorCode(tocErr) != cerrors.ErrorCodeTocNotFound {
		store.Close()
		return nil, tocErr
	}
	if create && exists {
		store.Close()
		return nil, cerrors.NewSchemaError(indexName, "index already exists")
	}
	if !create && !exists {
		store.Close()
		return nil, cerrors.NewTocNotFoundError(indexName)
	}

	w, err := writer.Open(&writer.Config{
		Store:     store,
		IndexName: indexName,
		Schema:    sch,
		Options:   resolved,
		Logger:    log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	if create {
		if err := w.Commit(writer.CommitOptions{}); err != nil {
			w.Close()
			store.Close()
			return nil, err
		}
	}

	return &Index{
		store:     store,
		indexName: indexName,
		options:   resolved,
		weighting: writer.BuildWeighting(resolved),
		writer:    w,
	}, nil
}

// AddDocument indexes doc, buffering it in the writer's current segment.
func (idx *Index) AddDocument(doc *schema.Document) error {
	return idx.writer.AddDocument(doc)
}

// DeleteByTerm deletes every document currently containing term in field.
func (idx *Index) DeleteByTerm(field string, term []byte) error {
	return idx.writer.DeleteByTerm(field, term)
}

// DeleteByQuery deletes every document q currently matches.
func (idx *Index) DeleteByQuery(q query.Query) error {
	return idx.writer.DeleteByQuery(q)
}

// Commit flushes any buffered documents, optionally merges, and
// publishes the resulting segment set as the index's next generation.
func (idx *Index) Commit(opts writer.CommitOptions) error {
	return idx.writer.Commit(opts)
}

// Search runs q against the index's latest committed generation,
// reopening the Searcher first if a newer generation has been published
// since the last call.
func (idx *Index) Search(ctx context.Context, q query.Query, limit int) (*searcher.Results, error) {
	r, err := idx.ensureReader()
	if err != nil {
		return nil, err
	}
	return r.Search(ctx, q, limit)
}

// StoredFields returns docID's stored field values from the index's
// latest committed generation.
func (idx *Index) StoredFields(docID uint64) (map[string]any, error) {
	r, err := idx.ensureReader()
	if err != nil {
		return nil, err
	}
	return r.StoredFields(docID)
}

// Schema returns the schema of the most recently opened read generation,
// or nil if Search/StoredFields has never been called.
func (idx *Index) Schema() *schema.Schema {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.schema
}

// ensureReader opens, or reopens if the TOC has advanced past the
// generation it was last built from, the Searcher Search and
// StoredFields read through. A reader is never mutated once built, per
// spec.md §5's "readers hold immutable references to segment files" —
// a newer generation always gets a freshly opened Searcher rather than
// an update to the old one.
func (idx *Index) ensureReader() (*searcher.Searcher, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	t, err := toc.Open(idx.store, idx.options.DataDir, idx.indexName)
	if err != nil {
		return nil, err
	}
	if idx.reader != nil && idx.generation == t.Generation {
		return idx.reader, nil
	}

	next, err := searcher.Open(idx.store, t.Schema, t.Segments, idx.weighting)
	if err != nil {
		return nil, err
	}
	if idx.reader != nil {
		idx.reader.Close()
	}
	idx.reader = next
	idx.schema = t.Schema
	idx.generation = t.Generation
	return next, nil
}

// Close releases the index's Searcher, IndexWriter, and Storage.
func (idx *Index) Close() error {
	idx.mu.Lock()
	reader := idx.reader
	idx.reader = nil
	idx.mu.Unlock()

	var firstErr error
	if reader != nil {
		if err := reader.Close(); err != nil {
			firstErr = err
		}
	}
	if err := idx.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := idx.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
