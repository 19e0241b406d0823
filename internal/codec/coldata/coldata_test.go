package coldata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/pkg/numeric"
)

func TestStoredFieldsRoundTrip(t *testing.T) {
	w := NewStoredFieldsWriter()
	require.NoError(t, w.Add(map[string]any{"title": "hello"}))
	require.NoError(t, w.Add(map[string]any{"title": "world", "views": 7}))
	blob, offsets := w.Finish()

	r := NewStoredFieldsReader(blob, offsets)
	got, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "world", got["title"])
	assert.Equal(t, 7, got["views"])
	assert.Equal(t, 2, r.Len())
}

func TestFieldLengthsRoundTrip(t *testing.T) {
	w := NewFieldLengthsWriter()
	w.Add(5)
	w.Add(200)
	bytes := w.Finish()

	r := NewFieldLengthsReader(bytes)
	assert.Equal(t, 5, r.Get(0))
	assert.InDelta(t, 200, r.Get(1), 20)
}

func TestVarBytesColumnRoundTrip(t *testing.T) {
	w := NewVarBytesWriter()
	require.NoError(t, w.Add(0, []byte("alpha")))
	require.NoError(t, w.Add(1, []byte("bravo-charlie")))
	blob := w.Finish()

	r := NewVarBytesReader(blob, []uint64{0, 5}, []uint32{5, 13})
	v, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "bravo-charlie", string(v.([]byte)))
}

func TestFixedBytesColumnRoundTrip(t *testing.T) {
	w := NewFixedBytesWriter(4)
	require.NoError(t, w.Add(0, []byte{1, 2, 3, 4}))
	require.NoError(t, w.Add(1, []byte{5, 6, 7, 8}))
	blob := w.Finish()

	r := NewFixedBytesReader(4, blob)
	v, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte{5, 6, 7, 8}, v.([]byte))
	assert.Equal(t, 2, r.Len())
}

func TestRefBytesColumnDeduplicates(t *testing.T) {
	w := NewRefBytesWriter()
	require.NoError(t, w.Add(0, []byte("red")))
	require.NoError(t, w.Add(1, []byte("blue")))
	require.NoError(t, w.Add(2, []byte("red")))
	refBuf := w.Finish()

	assert.Len(t, w.Dict(), 2)

	r := NewRefBytesReader(w.Dict(), refBuf, 3)
	v0, _ := r.Get(0)
	v2, _ := r.Get(2)
	assert.Equal(t, v0, v2)
}

func TestCompactIntColumnRoundTrip(t *testing.T) {
	w := NewCompactIntWriter(64)
	sortable := numeric.ToSortableInt(64, true, -42)
	require.NoError(t, w.Add(0, sortable))
	blob := w.Finish()

	r := NewCompactIntReader(64, blob)
	v, ok := r.Get(0)
	require.True(t, ok)
	got := numeric.FromSortableInt(64, true, v.(uint64))
	assert.Equal(t, int64(-42), got)
}

func TestBitsetColumnRoundTrip(t *testing.T) {
	w := NewBitsetWriter()
	require.NoError(t, w.Add(0, true))
	require.NoError(t, w.Add(1, false))
	require.NoError(t, w.Add(9, true))
	bits := w.Finish()

	r := NewBitsetReader(bits, 10)
	v0, _ := r.Get(0)
	v1, _ := r.Get(1)
	v9, _ := r.Get(9)
	assert.Equal(t, true, v0)
	assert.Equal(t, false, v1)
	assert.Equal(t, true, v9)
}

func TestRoaringColumnRoundTrip(t *testing.T) {
	w := NewRoaringColumnWriter()
	require.NoError(t, w.Add(3, true))
	require.NoError(t, w.Add(7, true))
	buf := w.Finish()

	r, err := NewRoaringColumnReader(buf)
	require.NoError(t, err)
	v3, _ := r.Get(3)
	v4, _ := r.Get(4)
	assert.Equal(t, true, v3)
	assert.Equal(t, false, v4)
	assert.Equal(t, 8, r.Len())
}

func TestCompressedBytesColumnRoundTrip(t *testing.T) {
	w := NewCompressedBytesWriter()
	require.NoError(t, w.Add(0, []byte("a long repeated value a long repeated value")))
	compressed := w.Finish()
	offsets, lengths := w.Offsets()

	r, err := NewCompressedBytesReader(compressed, offsets, lengths)
	require.NoError(t, err)
	v, ok := r.Get(0)
	require.True(t, ok)
	assert.Equal(t, "a long repeated value a long repeated value", string(v.([]byte)))
}

func TestPickledColumnRoundTrip(t *testing.T) {
	w := NewPickledWriter()
	require.NoError(t, w.Add(0, map[string]any{"a": 1}))
	blob := w.Finish()
	offsets := w.Offsets()

	r := NewPickledReader(blob, offsets)
	v, ok := r.Get(0)
	require.True(t, ok)
	m := v.(map[string]any)
	assert.Equal(t, 1, m["a"])
}
