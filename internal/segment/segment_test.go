package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/codec/coldata"
	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/pkg/options"
)

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	require.NoError(t, sch.AddField("tags", schema.NewKeywordFieldType(nil, true)))
	require.NoError(t, sch.AddField("rank", schema.NewNumericFieldType(32, true, false, true, true)))
	require.NoError(t, sch.AddField("weight", schema.NewNumericFieldTypeBKD(32, false, false, false)))
	require.NoError(t, sch.AddField("published", schema.NewBooleanFieldType(true)))
	require.NoError(t, sch.AddField("created", schema.NewDatetimeFieldType(true)))
	require.NoError(t, sch.AddField("note", schema.NewStoredFieldType()))
	return sch
}

func buildTestSegment(t *testing.T) (*Segment, *schema.Schema, storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	tmpDir := t.TempDir()

	store, err := storage.NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	tmp, err := storage.NewDirectoryStorage(tmpDir, nil)
	require.NoError(t, err)

	sch := newTestSchema(t)
	opts := options.NewDefaultOptions()

	w, err := NewWriter(store, tmp, sch, &opts)
	require.NoError(t, err)

	doc1 := schema.NewDocument().
		Set("title", "the quick brown fox").
		Set("tags", "animal wild").
		Set("rank", -7).
		Set("weight", 15).
		Set("published", true).
		Set("created", time.Unix(1000, 0).UTC()).
		Set("note", "first document")
	require.NoError(t, w.AddDocument(doc1))

	doc2 := schema.NewDocument().
		Set("title", "the lazy dog sleeps").
		Set("tags", "animal lazy").
		Set("rank", 42).
		Set("weight", 90).
		Set("published", false).
		Set("created", time.Unix(2000, 0).UTC()).
		Set("note", "second document")
	require.NoError(t, w.AddDocument(doc2))

	info, err := w.Finish()
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.DocCount)

	seg, err := Open(store, sch, info)
	require.NoError(t, err)
	t.Cleanup(func() { seg.Close() })

	return seg, sch, store
}

func TestWriterAndOpenRoundTrip(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	require.Equal(t, uint64(2), seg.DocCount())
	require.Equal(t, uint64(2), seg.LiveCount())
	require.False(t, seg.IsDeleted(0))
	require.False(t, seg.IsDeleted(1))
}

func TestSegmentTermDictionary(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	td := seg.TermDictionary("title")
	require.NotNil(t, td)
	require.True(t, td.Seek(termdict.Key{Term: []byte("the")}))
	require.Equal(t, "the", string(td.Key().Term))
	info := td.Value()
	require.Equal(t, uint64(2), info.DocFreq)

	require.True(t, td.Seek(termdict.Key{Term: []byte("fox")}))
	require.Equal(t, "fox", string(td.Key().Term))
	require.Equal(t, uint64(1), td.Value().DocFreq)
}

func TestSegmentFieldLengths(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	fl := seg.FieldLengths("title")
	require.NotNil(t, fl)
	require.Equal(t, 4, fl.Get(0))
	require.Equal(t, 4, fl.Get(1))
}

func TestSegmentColumns(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	rankCol := seg.Column("rank")
	require.NotNil(t, rankCol)
	v0, ok := rankCol.Get(0)
	require.True(t, ok)
	require.NotZero(t, v0)

	boolCol := seg.Column("published")
	require.NotNil(t, boolCol)
	v1, ok := boolCol.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte{0}, v1)
}

func TestSegmentBKDColumnRangeDocs(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	col := seg.Column("weight")
	require.NotNil(t, col)
	bkd, ok := col.(*coldata.BKDColumnReader)
	require.True(t, ok)

	v0, ok := bkd.Get(0)
	require.True(t, ok)
	require.Equal(t, uint64(15), v0)

	docs := bkd.RangeDocs(0, 50)
	require.Equal(t, []uint64{0}, docs)

	docs = bkd.RangeDocs(0, 100)
	require.ElementsMatch(t, []uint64{0, 1}, docs)
}

func TestSegmentStoredFields(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	sf := seg.StoredFields()
	require.NotNil(t, sf)
	values, err := sf.Get(0)
	require.NoError(t, err)
	require.Equal(t, "first document", values["note"])
	require.Equal(t, "the quick brown fox", values["title"])
}

func TestSegmentVectors(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	reader, err := seg.Vector("title", 0)
	require.NoError(t, err)
	require.NotNil(t, reader)

	var terms []string
	for {
		ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		if reader.IsActive() {
			terms = append(terms, string(reader.Term()))
		}
	}
	require.ElementsMatch(t, []string{"the", "quick", "brown", "fox"}, terms)
}

func TestSegmentDeletions(t *testing.T) {
	seg, _, _ := buildTestSegment(t)

	seg.Delete(0)
	require.True(t, seg.IsDeleted(0))
	require.Equal(t, uint64(1), seg.LiveCount())
	require.NoError(t, seg.WriteDeletions(1))

	reopened, err := Open(seg.store, seg.schema, Info{ID: seg.ID(), DocCount: seg.DocCount(), DelGeneration: 1})
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, reopened.IsDeleted(0))
	require.False(t, reopened.IsDeleted(1))
}
