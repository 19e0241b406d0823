package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
)

func TestSchemaAddFieldPreservesOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.AddField("id", NewIDFieldType(true)))
	require.NoError(t, s.AddField("title", NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, s.AddField("views", NewNumericFieldType(64, false, false, true, true)))

	assert.Equal(t, []string{"id", "title", "views"}, s.FieldNames())
}

func TestSchemaAddFieldRejectsDuplicate(t *testing.T) {
	s := New()
	require.NoError(t, s.AddField("id", NewIDFieldType(true)))

	err := s.AddField("id", NewIDFieldType(true))
	assert.Error(t, err)
}

func TestSchemaAddFieldRejectsEmptyName(t *testing.T) {
	s := New()
	err := s.AddField("", NewStoredFieldType())
	assert.Error(t, err)
}

func TestSchemaStoredAndScoredFieldNames(t *testing.T) {
	s := New()
	require.NoError(t, s.AddField("id", NewIDFieldType(false)))
	require.NoError(t, s.AddField("body", NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, s.AddField("tag", NewKeywordFieldType(analysis.WhitespaceAnalyzer{}, true)))

	assert.Equal(t, []string{"body", "tag"}, s.StoredFieldNames())
	assert.Equal(t, []string{"body"}, s.ScoredFieldNames())
}

func TestFieldTypeEffectiveBoostFallsBackToSchemaDefault(t *testing.T) {
	ft := NewTextFieldType(analysis.WhitespaceAnalyzer{}, false, true)
	assert.Equal(t, 1.0, ft.EffectiveBoost(nil))

	ft.Boost = 2.5
	assert.Equal(t, 2.5, ft.EffectiveBoost(nil))
}

func TestDocumentSetPreservesFirstSeenOrder(t *testing.T) {
	d := NewDocument()
	d.Set("title", "hello").Set("id", "1").Set("title", "hello again")

	assert.Equal(t, []string{"title", "id"}, d.FieldNames())
	v, ok := d.Get("title")
	require.True(t, ok)
	assert.Equal(t, "hello again", v)
	assert.Equal(t, 2, d.Len())
}

func TestDocumentGetMissingField(t *testing.T) {
	d := NewDocument()
	_, ok := d.Get("nope")
	assert.False(t, ok)
}
