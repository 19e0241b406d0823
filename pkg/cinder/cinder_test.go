package cinder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/writer"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/options"
)

func cinderTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, sch.AddField("body", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, false, true)))
	require.NoError(t, sch.AddField("note", schema.NewStoredFieldType()))
	return sch
}

func TestCreateRejectsExistingIndex(t *testing.T) {
	dir := t.TempDir()
	sch := cinderTestSchema(t)

	idx, err := Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.Error(t, err)
}

func TestOpenMissingIndexReturnsNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := Open("catalog-test", "products", options.WithDataDir(dir))
	require.Error(t, err)
	require.Equal(t, cerrors.ErrorCodeTocNotFound, cerrors.GetErrorCode(err))
}

func TestAddDocumentCommitSearchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sch := cinderTestSchema(t)

	idx, err := Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.AddDocument(schema.NewDocument().
		Set("title", "the quick fox").
		Set("body", "a quick brown fox jumps").
		Set("note", "doc-0")))
	require.NoError(t, idx.AddDocument(schema.NewDocument().
		Set("title", "a lazy dog").
		Set("body", "the dog sleeps all day").
		Set("note", "doc-1")))
	require.NoError(t, idx.Commit(writer.CommitOptions{}))

	results, err := idx.Search(context.Background(), query.NewTerm("title", []byte("quick")), 10)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)

	fields, err := idx.StoredFields(results.Hits[0].DocID)
	require.NoError(t, err)
	require.Equal(t, "doc-0", fields["note"])
}

func TestSearchReopensAfterNewCommit(t *testing.T) {
	dir := t.TempDir()
	sch := cinderTestSchema(t)

	idx, err := Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.AddDocument(schema.NewDocument().Set("title", "alpha").Set("body", "alpha body").Set("note", "a")))
	require.NoError(t, idx.Commit(writer.CommitOptions{}))

	results, err := idx.Search(context.Background(), query.Every, 10)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	firstGeneration := idx.generation

	require.NoError(t, idx.AddDocument(schema.NewDocument().Set("title", "beta").Set("body", "beta body").Set("note", "b")))
	require.NoError(t, idx.Commit(writer.CommitOptions{}))

	results, err = idx.Search(context.Background(), query.Every, 10)
	require.NoError(t, err)
	require.Len(t, results.Hits, 2)
	require.Greater(t, idx.generation, firstGeneration)
}

func TestStoredFieldsWithoutPriorSearchOpensReader(t *testing.T) {
	dir := t.TempDir()
	sch := cinderTestSchema(t)

	idx, err := Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.AddDocument(schema.NewDocument().Set("title", "alpha").Set("body", "alpha body").Set("note", "a")))
	require.NoError(t, idx.Commit(writer.CommitOptions{}))

	fields, err := idx.StoredFields(0)
	require.NoError(t, err)
	require.Equal(t, "a", fields["note"])
	require.NotNil(t, idx.Schema())
}

func TestDeleteByTermRemovesResultFromSearch(t *testing.T) {
	dir := t.TempDir()
	sch := cinderTestSchema(t)

	idx, err := Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.AddDocument(schema.NewDocument().Set("title", "alpha").Set("body", "alpha body").Set("note", "a")))
	require.NoError(t, idx.AddDocument(schema.NewDocument().Set("title", "beta").Set("body", "beta body").Set("note", "b")))
	require.NoError(t, idx.Commit(writer.CommitOptions{}))

	require.NoError(t, idx.DeleteByTerm("title", []byte("alpha")))
	require.NoError(t, idx.Commit(writer.CommitOptions{}))

	results, err := idx.Search(context.Background(), query.Every, 10)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	sch := cinderTestSchema(t)

	idx, err := Create("catalog-test", "products", sch, options.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
}
