package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
)

func buildFullSchema(t *testing.T) *Schema {
	t.Helper()
	sch := New()
	require.NoError(t, sch.AddField("id", NewIDFieldType(true)))
	require.NoError(t, sch.AddField("title", NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, sch.AddField("tags", NewKeywordFieldType(nil, true)))
	require.NoError(t, sch.AddField("rank", NewNumericFieldType(32, true, false, true, true)))
	require.NoError(t, sch.AddField("published", NewBooleanFieldType(true)))
	require.NoError(t, sch.AddField("created", NewDatetimeFieldType(true)))
	require.NoError(t, sch.AddField("note", NewStoredFieldType()))
	require.NoError(t, sch.AddField("facet", NewColumnFieldType(ColumnSpec{Type: ColumnBitset, Width: 0})))
	return sch
}

func TestSchemaEncodeDecodeRoundTrip(t *testing.T) {
	sch := buildFullSchema(t)
	blob := sch.Encode()

	got, err := Decode(blob)
	require.NoError(t, err)
	require.Equal(t, sch.FieldNames(), got.FieldNames())

	for _, name := range sch.FieldNames() {
		want, _ := sch.Field(name)
		have, ok := got.Field(name)
		require.True(t, ok)

		require.Equal(t, want.Kind, have.Kind)
		require.Equal(t, want.Stored, have.Stored)
		require.Equal(t, want.Scored, have.Scored)
		require.Equal(t, want.SelfParsing, have.SelfParsing)
		require.Equal(t, want.IndexedForm, have.IndexedForm)
		require.Equal(t, want.NumericBits, have.NumericBits)
		require.Equal(t, want.NumericSigned, have.NumericSigned)
		require.Equal(t, want.NumericFloat, have.NumericFloat)
		require.Equal(t, want.Column, have.Column)

		if want.Analyzer != nil {
			require.NotNil(t, have.Analyzer)
		} else {
			require.Nil(t, have.Analyzer)
		}
	}
}

func TestSchemaDecodeRejectsBadVersion(t *testing.T) {
	blob := []byte{0xFF, 0x00}
	_, err := Decode(blob)
	require.Error(t, err)
}

func TestSchemaDecodeRejectsTruncated(t *testing.T) {
	sch := buildFullSchema(t)
	blob := sch.Encode()
	_, err := Decode(blob[:len(blob)-3])
	require.Error(t, err)
}

func TestSchemaEncodeEmptySchema(t *testing.T) {
	sch := New()
	blob := sch.Encode()

	got, err := Decode(blob)
	require.NoError(t, err)
	require.Empty(t, got.FieldNames())
}
