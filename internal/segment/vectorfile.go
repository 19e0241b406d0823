package segment

import (
	"encoding/binary"

	"github.com/cinderfts/cinder/internal/codec/block"
	"github.com/cinderfts/cinder/internal/codec/vectors"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// vecDocEntry locates one document's encoded vector chunk within a
// ".vec.<field>" file's directory.
type vecDocEntry struct {
	docnum uint64
	offset uint64
	length uint64
}

// encodeVectorChunk packs one document's encoded vector block chain
// behind its sorted-term side table: [blocks][terms table][8-byte
// trailer giving the blocks region's length], so a reader can slice the
// block-source region out of the chunk before decoding the term table.
func encodeVectorChunk(blocks []block.EncodedBlock, terms [][]byte) []byte {
	var blockBytes []byte
	for _, b := range blocks {
		blockBytes = append(blockBytes, block.EncodeHeader(b.Header)...)
		blockBytes = append(blockBytes, b.Body...)
	}

	var termTable []byte
	termTable = numeric.AppendVarint(termTable, uint64(len(terms)))
	for _, t := range terms {
		termTable = numeric.AppendVarint(termTable, uint64(len(t)))
		termTable = append(termTable, t...)
	}

	out := append([]byte(nil), blockBytes...)
	out = append(out, termTable...)
	trailer := make([]byte, 8)
	binary.BigEndian.PutUint64(trailer, uint64(len(blockBytes)))
	return append(out, trailer...)
}

// decodeVectorChunk reverses encodeVectorChunk's layout, returning a
// vectors.Reader positioned at the start of the document's term list.
// name identifies the backing .vec.<field> file for error reporting.
func decodeVectorChunk(chunk []byte, name string) (*vectors.Reader, error) {
	if len(chunk) < 8 {
		return nil, errBadManifest
	}
	blocksLen := binary.BigEndian.Uint64(chunk[len(chunk)-8:])
	blockBytes := chunk[:blocksLen]
	termTable := chunk[blocksLen : len(chunk)-8]

	var n uint64
	pos := 0
	n, pos = numeric.DecodeVarint(termTable, pos)
	terms := make([][]byte, n)
	for i := range terms {
		var l uint64
		l, pos = numeric.DecodeVarint(termTable, pos)
		terms[i] = termTable[pos : pos+int(l)]
		pos += int(l)
	}

	return vectors.NewReader(&memBlockSource{data: blockBytes, name: name}, 0, terms)
}

// memBlockSource adapts an in-memory byte slice to block.BlockSource,
// the vector file's analogue of segment.go's blockFileSource for the
// main posting file.
type memBlockSource struct {
	data []byte
	name string
}

func (m *memBlockSource) ReadBlockAt(offset uint64) (block.Header, []byte, error) {
	header, err := block.DecodeHeader(m.data[offset:])
	if err != nil {
		return block.Header{}, nil, cerrors.NewStorageError(err, cerrors.ErrorCodeHeaderReadFailure, "vector block header failed magic verification").
			WithFileName(m.name).WithOffset(int(offset))
	}
	bodyStart := offset + uint64(block.HeaderSize)
	end := uint64(len(m.data))
	if header.NextOffset != 0 {
		end = header.NextOffset
	}
	return header, m.data[bodyStart:end], nil
}

// vecMagic tags the trailing directory of a .vec.<field> file.
var vecMagic = [4]byte{'V', 'e', 'c', 'D'}

// encodeVecDirectory serializes the docnum→(offset,length) directory
// appended after every document's chunk in a .vec.<field> file.
func encodeVecDirectory(entries []vecDocEntry) []byte {
	out := encodeUint32(uint32(len(entries)))
	for _, e := range entries {
		out = append(out, encodeUint64(e.docnum)...)
		out = append(out, encodeUint64(e.offset)...)
		out = append(out, encodeUint64(e.length)...)
	}
	footer := make([]byte, 12)
	copy(footer[0:4], vecMagic[:])
	binary.BigEndian.PutUint64(footer[4:12], uint64(len(out)))
	return append(out, footer...)
}

// decodeVecDirectory reads a .vec.<field> file's trailing directory,
// returning the docnum→(offset,length) map.
func decodeVecDirectory(buf []byte) (map[uint64]vecDocEntry, error) {
	if len(buf) < 12 {
		return nil, errBadManifest
	}
	footer := buf[len(buf)-12:]
	if string(footer[0:4]) != string(vecMagic[:]) {
		return nil, errBadManifest
	}
	dirLen := binary.BigEndian.Uint64(footer[4:12])
	dirStart := len(buf) - 12 - int(dirLen)

	pos := dirStart
	count := decodeUint32(buf[pos:])
	pos += 4
	out := make(map[uint64]vecDocEntry, count)
	for i := uint32(0); i < count; i++ {
		docnum := decodeUint64(buf[pos:])
		pos += 8
		offset := decodeUint64(buf[pos:])
		pos += 8
		length := decodeUint64(buf[pos:])
		pos += 8
		out[docnum] = vecDocEntry{docnum: docnum, offset: offset, length: length}
	}
	return out, nil
}
