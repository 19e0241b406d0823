package coldata

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/cinderfts/cinder/pkg/numeric"
)

// bkdMagic tags a finished BKDColumn blob.
var bkdMagic = [4]byte{'B', 'K', 'D', '1'}

// bkdBlockSize is the number of points grouped under one leaf block's
// min/max summary; RangeDocs prunes at this granularity before scanning
// surviving blocks point by point.
const bkdBlockSize = 128

// BKDColumnWriter builds a block k-d tree over a numeric field's
// sortable-uint64 values (the same encoding CompactIntWriter stores),
// giving range queries a way to answer without a full term-dictionary
// scan when the field is unscored and has many distinct values. It is a
// one-dimensional BKD tree: points are grouped into leaf blocks sorted by
// value, and a block's [min,max] summary lets RangeDocs skip the whole
// block when it falls outside the query range, same as a k-d tree's
// internal-node pruning collapses to at higher dimensionality.
type BKDColumnWriter struct {
	points    []bkdPoint
	maxDocnum uint64
}

type bkdPoint struct {
	value  uint64
	docnum uint64
}

func NewBKDColumnWriter() *BKDColumnWriter { return &BKDColumnWriter{} }

func (w *BKDColumnWriter) Add(docnum uint64, value any) error {
	v := value.(uint64)
	w.points = append(w.points, bkdPoint{value: v, docnum: docnum})
	if docnum+1 > w.maxDocnum {
		w.maxDocnum = docnum + 1
	}
	return nil
}

// Finish lays out two regions behind the magic/header: the sorted leaf
// blocks used for range pruning, and a dense docnum-indexed array (the
// same fixed-width layout CompactIntWriter uses) so Get/Len can answer
// random access without walking the tree.
func (w *BKDColumnWriter) Finish() []byte {
	dense := make([]byte, w.maxDocnum*8)
	for _, p := range w.points {
		off := p.docnum * 8
		binary.BigEndian.PutUint64(dense[off:off+8], p.value)
	}

	sorted := append([]bkdPoint(nil), w.points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].value < sorted[j].value })

	out := append([]byte{}, bkdMagic[:]...)
	out = numeric.AppendVarint(out, uint64(len(sorted)))
	out = numeric.AppendVarint(out, uint64(bkdBlockSize))

	numBlocks := (len(sorted) + bkdBlockSize - 1) / bkdBlockSize
	out = numeric.AppendVarint(out, uint64(numBlocks))

	for i := 0; i < len(sorted); i += bkdBlockSize {
		end := i + bkdBlockSize
		if end > len(sorted) {
			end = len(sorted)
		}
		blk := sorted[i:end]

		var minb, maxb [8]byte
		binary.BigEndian.PutUint64(minb[:], blk[0].value)
		binary.BigEndian.PutUint64(maxb[:], blk[len(blk)-1].value)
		out = append(out, minb[:]...)
		out = append(out, maxb[:]...)
		out = numeric.AppendVarint(out, uint64(len(blk)))
		for _, p := range blk {
			var vb [8]byte
			binary.BigEndian.PutUint64(vb[:], p.value)
			out = append(out, vb[:]...)
			out = numeric.AppendVarint(out, p.docnum)
		}
	}

	out = numeric.AppendVarint(out, uint64(len(dense)))
	out = append(out, dense...)
	return out
}

// bkdBlockSummary is one leaf block's pruning range plus its points, kept
// in value order.
type bkdBlockSummary struct {
	min, max uint64
	values   []uint64
	docnums  []uint64
}

// BKDColumnReader is the read side of BKDColumnWriter: random access by
// docnum through the dense side array (satisfying ColumnReader, same
// contract as CompactIntReader), plus RangeDocs for block-pruned range
// scans over the value-sorted leaf blocks.
type BKDColumnReader struct {
	blocks []bkdBlockSummary
	dense  []byte
}

var errBadBKDColumn = errors.New("coldata: malformed bkd column")

func NewBKDColumnReader(buf []byte) (*BKDColumnReader, error) {
	if len(buf) < 4 || string(buf[:4]) != string(bkdMagic[:]) {
		return nil, errBadBKDColumn
	}
	pos := 4
	var numPoints, blockSize, numBlocks uint64
	numPoints, pos = numeric.DecodeVarint(buf, pos)
	blockSize, pos = numeric.DecodeVarint(buf, pos)
	numBlocks, pos = numeric.DecodeVarint(buf, pos)
	_, _ = numPoints, blockSize

	blocks := make([]bkdBlockSummary, numBlocks)
	for i := range blocks {
		if pos+16 > len(buf) {
			return nil, errBadBKDColumn
		}
		min := binary.BigEndian.Uint64(buf[pos : pos+8])
		max := binary.BigEndian.Uint64(buf[pos+8 : pos+16])
		pos += 16

		var count uint64
		count, pos = numeric.DecodeVarint(buf, pos)
		values := make([]uint64, count)
		docnums := make([]uint64, count)
		for j := uint64(0); j < count; j++ {
			if pos+8 > len(buf) {
				return nil, errBadBKDColumn
			}
			values[j] = binary.BigEndian.Uint64(buf[pos : pos+8])
			pos += 8
			docnums[j], pos = numeric.DecodeVarint(buf, pos)
		}
		blocks[i] = bkdBlockSummary{min: min, max: max, values: values, docnums: docnums}
	}

	var denseLen uint64
	denseLen, pos = numeric.DecodeVarint(buf, pos)
	if pos+int(denseLen) > len(buf) {
		return nil, errBadBKDColumn
	}
	dense := buf[pos : pos+int(denseLen)]

	return &BKDColumnReader{blocks: blocks, dense: dense}, nil
}

func (r *BKDColumnReader) Get(docnum uint64) (any, bool) {
	off := docnum * 8
	if off+8 > uint64(len(r.dense)) {
		return nil, false
	}
	return binary.BigEndian.Uint64(r.dense[off : off+8]), true
}

func (r *BKDColumnReader) Len() int { return len(r.dense) / 8 }

// RangeDocs returns every docnum whose sortable value falls within
// [min, max], skipping whole blocks whose summary range doesn't
// intersect the query and, for a block that straddles a bound, scanning
// only that block's points — the point of carrying the block summaries
// instead of just a sorted array.
func (r *BKDColumnReader) RangeDocs(min, max uint64) []uint64 {
	var out []uint64
	for _, blk := range r.blocks {
		if blk.max < min || blk.min > max {
			continue
		}
		if blk.min >= min && blk.max <= max {
			out = append(out, blk.docnums...)
			continue
		}
		for i, v := range blk.values {
			if v >= min && v <= max {
				out = append(out, blk.docnums[i])
			}
		}
	}
	return out
}
