package coldata

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"io"

	"github.com/RoaringBitmap/roaring"

	"github.com/cinderfts/cinder/pkg/numeric"
)

// ColumnWriter is the common contract spec.md §4.4 gives every column
// type: add(docnum, value) with docnums monotonically non-decreasing,
// then emit a self-describing footer.
type ColumnWriter interface {
	Add(docnum uint64, value any) error
	Finish() []byte
}

// ColumnReader gives random access by docnum plus docnum-order
// iteration over a finished column.
type ColumnReader interface {
	Get(docnum uint64) (any, bool)
	Len() int
}

// VarBytesWriter stores variable-length byte values with a docnum→offset
// index, the simplest column type.
type VarBytesWriter struct {
	blob    []byte
	offsets []uint64
	lengths []uint32
}

func NewVarBytesWriter() *VarBytesWriter { return &VarBytesWriter{} }

func (w *VarBytesWriter) Add(docnum uint64, value any) error {
	b := value.([]byte)
	w.offsets = append(w.offsets, uint64(len(w.blob)))
	w.lengths = append(w.lengths, uint32(len(b)))
	w.blob = append(w.blob, b...)
	return nil
}

func (w *VarBytesWriter) Finish() []byte { return w.blob }

// Offsets exposes the docnum→offset side table built up by Add, to be
// persisted alongside the blob.
func (w *VarBytesWriter) Offsets() []uint64 { return w.offsets }

// Lengths exposes the per-docnum length side table built up by Add.
func (w *VarBytesWriter) Lengths() []uint32 { return w.lengths }

// VarBytesReader is the read-side complement of VarBytesWriter; the
// offsets/lengths side table is loaded separately from the blob, matching
// the segment footer layout (blob in the .col.<field> file, side table in
// its footer).
type VarBytesReader struct {
	blob    []byte
	offsets []uint64
	lengths []uint32
}

func NewVarBytesReader(blob []byte, offsets []uint64, lengths []uint32) *VarBytesReader {
	return &VarBytesReader{blob: blob, offsets: offsets, lengths: lengths}
}

func (r *VarBytesReader) Get(docnum uint64) (any, bool) {
	if docnum >= uint64(len(r.offsets)) {
		return nil, false
	}
	off := r.offsets[docnum]
	return r.blob[off : off+uint64(r.lengths[docnum])], true
}

func (r *VarBytesReader) Len() int { return len(r.offsets) }

// FixedBytesWriter stores fixed-width byte values with no side table
// needed: docnum*width gives the offset directly.
type FixedBytesWriter struct {
	width int
	blob  []byte
}

func NewFixedBytesWriter(width int) *FixedBytesWriter {
	return &FixedBytesWriter{width: width}
}

func (w *FixedBytesWriter) Add(docnum uint64, value any) error {
	b := value.([]byte)
	w.blob = append(w.blob, b...)
	return nil
}

func (w *FixedBytesWriter) Finish() []byte { return w.blob }

type FixedBytesReader struct {
	width int
	blob  []byte
}

func NewFixedBytesReader(width int, blob []byte) *FixedBytesReader {
	return &FixedBytesReader{width: width, blob: blob}
}

func (r *FixedBytesReader) Get(docnum uint64) (any, bool) {
	off := int(docnum) * r.width
	if off+r.width > len(r.blob) {
		return nil, false
	}
	return r.blob[off : off+r.width], true
}

func (r *FixedBytesReader) Len() int { return len(r.blob) / max(r.width, 1) }

// RefBytesWriter is for low-cardinality fields: a dictionary of unique
// values plus a per-docnum reference index into it.
type RefBytesWriter struct {
	dict    [][]byte
	lookup  map[string]uint32
	refs    []uint32
}

func NewRefBytesWriter() *RefBytesWriter {
	return &RefBytesWriter{lookup: make(map[string]uint32)}
}

func (w *RefBytesWriter) Add(docnum uint64, value any) error {
	b := value.([]byte)
	idx, ok := w.lookup[string(b)]
	if !ok {
		idx = uint32(len(w.dict))
		w.dict = append(w.dict, b)
		w.lookup[string(b)] = idx
	}
	w.refs = append(w.refs, idx)
	return nil
}

// Finish returns the reference array; callers persist Dict() separately
// as the column's shared dictionary.
func (w *RefBytesWriter) Finish() []byte {
	buf := make([]byte, 0, len(w.refs)*4)
	for _, r := range w.refs {
		buf = numeric.AppendVarint(buf, uint64(r))
	}
	return buf
}

// Dict returns the accumulated unique-value dictionary in first-seen
// order.
func (w *RefBytesWriter) Dict() [][]byte { return w.dict }

type RefBytesReader struct {
	dict [][]byte
	refs []uint32
}

func NewRefBytesReader(dict [][]byte, refBuf []byte, count int) *RefBytesReader {
	refs := make([]uint32, count)
	pos := 0
	for i := 0; i < count; i++ {
		var v uint64
		v, pos = numeric.DecodeVarint(refBuf, pos)
		refs[i] = uint32(v)
	}
	return &RefBytesReader{dict: dict, refs: refs}
}

func (r *RefBytesReader) Get(docnum uint64) (any, bool) {
	if docnum >= uint64(len(r.refs)) {
		return nil, false
	}
	return r.dict[r.refs[docnum]], true
}

func (r *RefBytesReader) Len() int { return len(r.refs) }

// CompactIntWriter stores fixed-width sortable integers (bits/8 bytes
// each), for numeric columns built on pkg/numeric's sortable encoding.
type CompactIntWriter struct {
	bits int
	blob []byte
}

func NewCompactIntWriter(bits int) *CompactIntWriter {
	return &CompactIntWriter{bits: bits}
}

func (w *CompactIntWriter) Add(docnum uint64, value any) error {
	sortable := value.(uint64)
	width := w.bits / 8
	for i := width - 1; i >= 0; i-- {
		w.blob = append(w.blob, byte(sortable>>(8*uint(i))))
	}
	return nil
}

func (w *CompactIntWriter) Finish() []byte { return w.blob }

type CompactIntReader struct {
	bits int
	blob []byte
}

func NewCompactIntReader(bits int, blob []byte) *CompactIntReader {
	return &CompactIntReader{bits: bits, blob: blob}
}

func (r *CompactIntReader) Get(docnum uint64) (any, bool) {
	width := r.bits / 8
	off := int(docnum) * width
	if off+width > len(r.blob) {
		return nil, false
	}
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<8 | uint64(r.blob[off+i])
	}
	return v, true
}

func (r *CompactIntReader) Len() int {
	width := r.bits / 8
	return len(r.blob) / max(width, 1)
}

// BitsetWriter stores one bit per docnum (used for Boolean fields).
type BitsetWriter struct {
	bits []byte
	n    int
}

func NewBitsetWriter() *BitsetWriter { return &BitsetWriter{} }

func (w *BitsetWriter) Add(docnum uint64, value any) error {
	b := value.(bool)
	byteIdx := int(docnum) / 8
	for len(w.bits) <= byteIdx {
		w.bits = append(w.bits, 0)
	}
	if b {
		w.bits[byteIdx] |= 1 << (docnum % 8)
	}
	if int(docnum)+1 > w.n {
		w.n = int(docnum) + 1
	}
	return nil
}

func (w *BitsetWriter) Finish() []byte { return w.bits }

type BitsetReader struct {
	bits []byte
	n    int
}

func NewBitsetReader(bits []byte, n int) *BitsetReader {
	return &BitsetReader{bits: bits, n: n}
}

func (r *BitsetReader) Get(docnum uint64) (any, bool) {
	if int(docnum) >= r.n {
		return nil, false
	}
	byteIdx := int(docnum) / 8
	return r.bits[byteIdx]&(1<<(docnum%8)) != 0, true
}

func (r *BitsetReader) Len() int { return r.n }

// RoaringColumnWriter accumulates docnums holding a true/present value
// into a single roaring.Bitmap, the compressed analogue of BitsetWriter
// for sparse fields.
type RoaringColumnWriter struct {
	bitmap *roaring.Bitmap
}

func NewRoaringColumnWriter() *RoaringColumnWriter {
	return &RoaringColumnWriter{bitmap: roaring.New()}
}

func (w *RoaringColumnWriter) Add(docnum uint64, value any) error {
	if value.(bool) {
		w.bitmap.Add(uint32(docnum))
	}
	return nil
}

func (w *RoaringColumnWriter) Finish() []byte {
	buf, err := w.bitmap.ToBytes()
	if err != nil {
		return nil
	}
	return buf
}

type RoaringColumnReader struct {
	bitmap *roaring.Bitmap
}

func NewRoaringColumnReader(buf []byte) (*RoaringColumnReader, error) {
	bm := roaring.New()
	if _, err := bm.FromBuffer(buf); err != nil {
		return nil, err
	}
	return &RoaringColumnReader{bitmap: bm}, nil
}

func (r *RoaringColumnReader) Get(docnum uint64) (any, bool) {
	return r.bitmap.Contains(uint32(docnum)), true
}

func (r *RoaringColumnReader) Len() int {
	if r.bitmap.IsEmpty() {
		return 0
	}
	return int(r.bitmap.Maximum()) + 1
}

// CompressedBytesWriter is VarBytesWriter with the blob gzip-compressed
// as a whole on Finish, for columns whose values compress well (long
// text snippets kept as a sortable/facetable column).
type CompressedBytesWriter struct {
	inner *VarBytesWriter
}

func NewCompressedBytesWriter() *CompressedBytesWriter {
	return &CompressedBytesWriter{inner: NewVarBytesWriter()}
}

func (w *CompressedBytesWriter) Add(docnum uint64, value any) error {
	return w.inner.Add(docnum, value)
}

func (w *CompressedBytesWriter) Finish() []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write(w.inner.Finish())
	_ = gz.Close()
	return buf.Bytes()
}

// Offsets exposes the uncompressed side table Add built up, to be
// persisted alongside the compressed blob.
func (w *CompressedBytesWriter) Offsets() ([]uint64, []uint32) {
	return w.inner.offsets, w.inner.lengths
}

type CompressedBytesReader struct {
	inner *VarBytesReader
}

func NewCompressedBytesReader(compressed []byte, offsets []uint64, lengths []uint32) (*CompressedBytesReader, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	blob, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}
	return &CompressedBytesReader{inner: NewVarBytesReader(blob, offsets, lengths)}, nil
}

func (r *CompressedBytesReader) Get(docnum uint64) (any, bool) { return r.inner.Get(docnum) }
func (r *CompressedBytesReader) Len() int                       { return r.inner.Len() }

// PickledWriter stores arbitrary gob-encodable values, the general
// fallback column type when none of the typed columns fit.
type PickledWriter struct {
	blob    []byte
	offsets []uint64
}

func NewPickledWriter() *PickledWriter { return &PickledWriter{} }

func (w *PickledWriter) Add(docnum uint64, value any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return err
	}
	w.offsets = append(w.offsets, uint64(len(w.blob)))
	w.blob = numeric.AppendVarint(w.blob, uint64(buf.Len()))
	w.blob = append(w.blob, buf.Bytes()...)
	return nil
}

func (w *PickledWriter) Finish() []byte { return w.blob }

// Offsets exposes the docnum→offset index built up by Add.
func (w *PickledWriter) Offsets() []uint64 { return w.offsets }

type PickledReader struct {
	blob    []byte
	offsets []uint64
}

func NewPickledReader(blob []byte, offsets []uint64) *PickledReader {
	return &PickledReader{blob: blob, offsets: offsets}
}

func (r *PickledReader) Get(docnum uint64) (any, bool) {
	if docnum >= uint64(len(r.offsets)) {
		return nil, false
	}
	off := r.offsets[docnum]
	length, pos := numeric.DecodeVarint(r.blob, int(off))
	var value any
	dec := gob.NewDecoder(bytes.NewReader(r.blob[pos : pos+int(length)]))
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

func (r *PickledReader) Len() int { return len(r.offsets) }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
