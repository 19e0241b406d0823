package coldata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBKDColumnRoundTrip(t *testing.T) {
	w := NewBKDColumnWriter()
	values := []uint64{50, 10, 30, 90, 20, 70, 40, 60, 80}
	for docnum, v := range values {
		require.NoError(t, w.Add(uint64(docnum), v))
	}
	blob := w.Finish()

	r, err := NewBKDColumnReader(blob)
	require.NoError(t, err)
	assert.Equal(t, len(values), r.Len())

	for docnum, want := range values {
		got, ok := r.Get(uint64(docnum))
		require.True(t, ok)
		assert.Equal(t, want, got.(uint64))
	}

	_, ok := r.Get(uint64(len(values)))
	assert.False(t, ok)
}

func TestBKDColumnRangeDocsPrunesBlocks(t *testing.T) {
	w := NewBKDColumnWriter()
	for docnum := 0; docnum < bkdBlockSize*3; docnum++ {
		require.NoError(t, w.Add(uint64(docnum), uint64(docnum)))
	}
	blob := w.Finish()

	r, err := NewBKDColumnReader(blob)
	require.NoError(t, err)
	require.Len(t, r.blocks, 3)

	docs := r.RangeDocs(uint64(bkdBlockSize)+5, uint64(bkdBlockSize)+15)
	assert.Len(t, docs, 11)
	for _, d := range docs {
		assert.GreaterOrEqual(t, d, uint64(bkdBlockSize)+5)
		assert.LessOrEqual(t, d, uint64(bkdBlockSize)+15)
	}
}

func TestBKDColumnRangeDocsWholeBlockMatch(t *testing.T) {
	w := NewBKDColumnWriter()
	for docnum := 0; docnum < bkdBlockSize*2; docnum++ {
		require.NoError(t, w.Add(uint64(docnum), uint64(docnum)))
	}
	blob := w.Finish()

	r, err := NewBKDColumnReader(blob)
	require.NoError(t, err)

	docs := r.RangeDocs(0, uint64(bkdBlockSize*2-1))
	assert.Len(t, docs, bkdBlockSize*2)
}

func TestBKDColumnReaderRejectsBadMagic(t *testing.T) {
	_, err := NewBKDColumnReader([]byte("not-a-bkd-column"))
	assert.Error(t, err)
}
