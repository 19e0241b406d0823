package segment

import (
	"github.com/cinderfts/cinder/internal/codec/coldata"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// columnBuild holds a finished column's type-specific payload plus
// whatever side tables its reader needs to reconstruct it;
// encodeColumnFile puts it behind a single leading type byte, so a
// segment can store one self-describing
// ".col.<field>" file per column field regardless of which of the eight
// column types (spec.md §4.4) or the supplemented BKDColumn it holds.
type columnBuild struct {
	Type    schema.ColumnType
	Blob    []byte
	Width   int      // FixedBytes, CompactInt: byte width (CompactInt's bits/8)
	Offsets []uint64 // VarBytes, CompressedBytes, Pickled
	Lengths []uint32 // VarBytes, CompressedBytes
	Dict    [][]byte // RefBytes
	Count   int      // RefBytes, Bitset: element count
	RefBuf  []byte   // RefBytes: varint-encoded reference array
}

func encodeColumnFile(b columnBuild) []byte {
	out := []byte{byte(b.Type)}
	switch b.Type {
	case schema.ColumnVarBytes, schema.ColumnCompressedBytes:
		out = numeric.AppendVarint(out, uint64(len(b.Blob)))
		out = append(out, b.Blob...)
		out = numeric.AppendVarint(out, uint64(len(b.Offsets)))
		for _, o := range b.Offsets {
			out = numeric.AppendVarint(out, o)
		}
		for _, l := range b.Lengths {
			out = numeric.AppendVarint(out, uint64(l))
		}
	case schema.ColumnFixedBytes:
		out = numeric.AppendVarint(out, uint64(b.Width))
		out = append(out, b.Blob...)
	case schema.ColumnRefBytes:
		out = numeric.AppendVarint(out, uint64(len(b.Dict)))
		for _, d := range b.Dict {
			out = numeric.AppendVarint(out, uint64(len(d)))
			out = append(out, d...)
		}
		out = numeric.AppendVarint(out, uint64(b.Count))
		out = append(out, b.RefBuf...)
	case schema.ColumnCompactInt:
		out = numeric.AppendVarint(out, uint64(b.Width))
		out = append(out, b.Blob...)
	case schema.ColumnBitset:
		out = numeric.AppendVarint(out, uint64(b.Count))
		out = append(out, b.Blob...)
	case schema.ColumnRoaring:
		out = append(out, b.Blob...)
	case schema.ColumnBKD:
		out = append(out, b.Blob...)
	case schema.ColumnPickled:
		out = numeric.AppendVarint(out, uint64(len(b.Offsets)))
		for _, o := range b.Offsets {
			out = numeric.AppendVarint(out, o)
		}
		out = append(out, b.Blob...)
	}
	return out
}

// decodeColumnFile reverses encodeColumnFile, returning a ready-to-use
// coldata.ColumnReader for whichever column type the leading byte names.
func decodeColumnFile(buf []byte) (coldata.ColumnReader, error) {
	if len(buf) == 0 {
		return nil, errBadManifest
	}
	colType := schema.ColumnType(buf[0])
	pos := 1

	switch colType {
	case schema.ColumnVarBytes, schema.ColumnCompressedBytes:
		var blobLen uint64
		blobLen, pos = numeric.DecodeVarint(buf, pos)
		blob := buf[pos : pos+int(blobLen)]
		pos += int(blobLen)
		var n uint64
		n, pos = numeric.DecodeVarint(buf, pos)
		offsets := make([]uint64, n)
		for i := range offsets {
			offsets[i], pos = numeric.DecodeVarint(buf, pos)
		}
		lengths := make([]uint32, n)
		for i := range lengths {
			var l uint64
			l, pos = numeric.DecodeVarint(buf, pos)
			lengths[i] = uint32(l)
		}
		if colType == schema.ColumnCompressedBytes {
			return coldata.NewCompressedBytesReader(blob, offsets, lengths)
		}
		return coldata.NewVarBytesReader(blob, offsets, lengths), nil

	case schema.ColumnFixedBytes:
		var width uint64
		width, pos = numeric.DecodeVarint(buf, pos)
		return coldata.NewFixedBytesReader(int(width), buf[pos:]), nil

	case schema.ColumnRefBytes:
		var dictN uint64
		dictN, pos = numeric.DecodeVarint(buf, pos)
		dict := make([][]byte, dictN)
		for i := range dict {
			var l uint64
			l, pos = numeric.DecodeVarint(buf, pos)
			dict[i] = buf[pos : pos+int(l)]
			pos += int(l)
		}
		var count uint64
		count, pos = numeric.DecodeVarint(buf, pos)
		return coldata.NewRefBytesReader(dict, buf[pos:], int(count)), nil

	case schema.ColumnCompactInt:
		var width uint64
		width, pos = numeric.DecodeVarint(buf, pos)
		return coldata.NewCompactIntReader(int(width)*8, buf[pos:]), nil

	case schema.ColumnBitset:
		var count uint64
		count, pos = numeric.DecodeVarint(buf, pos)
		return coldata.NewBitsetReader(buf[pos:], int(count)), nil

	case schema.ColumnRoaring:
		return coldata.NewRoaringColumnReader(buf[pos:])

	case schema.ColumnBKD:
		return coldata.NewBKDColumnReader(buf[pos:])

	case schema.ColumnPickled:
		var n uint64
		n, pos = numeric.DecodeVarint(buf, pos)
		offsets := make([]uint64, n)
		for i := range offsets {
			offsets[i], pos = numeric.DecodeVarint(buf, pos)
		}
		return coldata.NewPickledReader(buf[pos:], offsets), nil
	}
	return nil, errBadManifest
}
