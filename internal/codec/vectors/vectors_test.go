package vectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/codec/block"
)

type memSource struct {
	data []byte
}

func (m *memSource) append(blocks []block.EncodedBlock) {
	for _, b := range blocks {
		m.data = append(m.data, block.EncodeHeader(b.Header)...)
		m.data = append(m.data, b.Body...)
	}
}

func (m *memSource) ReadBlockAt(offset uint64) (block.Header, []byte, error) {
	header, err := block.DecodeHeader(m.data[offset:])
	if err != nil {
		return block.Header{}, nil, err
	}
	bodyStart := offset + uint64(block.HeaderSize)
	end := uint64(len(m.data))
	if header.NextOffset != 0 {
		end = header.NextOffset
	}
	return header, m.data[bodyStart:end], nil
}

func TestVectorEncodeDecodeRoundTrip(t *testing.T) {
	entries := []Entry{
		{Term: []byte("zebra"), Weight: 1, Positions: []int{3}},
		{Term: []byte("apple"), Weight: 2, Positions: []int{0, 1}},
		{Term: []byte("mango"), Weight: 1, Positions: []int{2}},
	}

	w := NewWriter()
	blocks, terms := w.Encode(entries, 0)
	require.Len(t, blocks, 1)
	assert.Equal(t, [][]byte{[]byte("apple"), []byte("mango"), []byte("zebra")}, terms)

	src := &memSource{}
	src.append(blocks)

	r, err := NewReader(src, 0, terms)
	require.NoError(t, err)
	assert.Equal(t, "apple", string(r.Term()))
	assert.Equal(t, []int{0, 1}, r.Positions())

	ok, err := r.Seek([]byte("zebra"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "zebra", string(r.Term()))
}

func TestVectorSeekMissingTerm(t *testing.T) {
	entries := []Entry{{Term: []byte("alpha"), Weight: 1, Positions: []int{0}}}
	w := NewWriter()
	blocks, terms := w.Encode(entries, 0)
	src := &memSource{}
	src.append(blocks)

	r, err := NewReader(src, 0, terms)
	require.NoError(t, err)
	ok, err := r.Seek([]byte("zzz"))
	require.NoError(t, err)
	assert.False(t, ok)
}
