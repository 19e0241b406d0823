package block

import (
	"math"

	"github.com/cinderfts/cinder/internal/postings"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// BlockSource loads the raw bytes of the block starting at offset. Term
// dictionary entries give the offset of a term's first block; Reader
// follows NextOffset from there, so callers never need to know a term's
// full block count up front.
type BlockSource interface {
	ReadBlockAt(offset uint64) (header Header, body []byte, err error)
}

// Reader is the posting reader contract of spec.md §4.2: positioned on
// one posting at a time within the current block, advancing within the
// block or across the forward skip chain.
type Reader struct {
	src    BlockSource
	header Header
	ids     []uint64
	lengths []byte // per-posting length byte (pkg/numeric length-byte encoding)
	values  [][]byte // per-posting raw value entry, nil if no feature arrays
	weight  func(i int) float32

	offset  uint64 // absolute offset of the current block
	index   int    // posting index within the current block
	active  bool
}

// NewReader opens a Reader positioned on the first posting of the block
// at startOffset.
func NewReader(src BlockSource, startOffset uint64) (*Reader, error) {
	r := &Reader{src: src}
	if err := r.loadBlock(startOffset); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) loadBlock(offset uint64) error {
	header, body, err := r.src.ReadBlockAt(offset)
	if err != nil {
		return err
	}
	r.header = header
	r.offset = offset
	r.index = 0
	r.active = header.Count > 0

	idBuf := body[:header.IDsLen]
	r.ids = decodeIDs(header.IDEncoding, idBuf, int(header.Count))

	weightBuf := body[header.IDsLen : header.IDsLen+header.WeightsLen]
	if header.HasFeature(FlagUniformWeight) {
		w := decodeFloat32(weightBuf)
		r.weight = func(int) float32 { return w }
	} else {
		r.weight = func(i int) float32 { return decodeFloat32(weightBuf[i*4 : i*4+4]) }
	}

	lengthsStart := header.IDsLen + header.WeightsLen
	lengthsEnd := lengthsStart + uint32(header.Count)
	r.lengths = body[lengthsStart:lengthsEnd]

	valueRegion := body[lengthsEnd:]
	if header.HasFeature(FlagHasPositions) || header.HasFeature(FlagHasChars) || header.HasFeature(FlagHasPayloads) {
		r.values = decodeValues(valueRegion, int(header.Count))
	} else {
		r.values = nil
	}
	return nil
}

func decodeFloat32(buf []byte) float32 {
	bits := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return math.Float32frombits(bits)
}

func decodeValues(region []byte, count int) [][]byte {
	out := make([][]byte, count)
	pos := 0
	for i := 0; i < count; i++ {
		entryLen, next := numeric.DecodeVarint(region, pos)
		pos = next
		out[i] = region[pos : pos+int(entryLen)]
		pos += int(entryLen)
	}
	return out
}

// IsActive reports whether the current posting is valid.
func (r *Reader) IsActive() bool { return r.active }

// ID returns the current posting's docid.
func (r *Reader) ID() uint64 { return r.ids[r.index] }

// Weight returns the current posting's weight.
func (r *Reader) Weight() float32 { return r.weight(r.index) }

// Length returns the current posting's field length, decoded from its
// length byte via pkg/numeric's lossy log-scale approximation.
func (r *Reader) Length() int {
	return numeric.ByteToLength(r.lengths[r.index])
}

// Positions returns the current posting's token positions, or nil if the
// block does not carry positions.
func (r *Reader) Positions() []int {
	if !r.header.HasFeature(FlagHasPositions) || r.values == nil {
		return nil
	}
	entry := r.values[r.index]
	n, pos := numeric.DecodeVarint(entry, 0)
	positions := make([]int, n)
	cur := 0
	for i := 0; i < int(n); i++ {
		var d uint64
		d, pos = numeric.DecodeVarint(entry, pos)
		cur += int(d)
		positions[i] = cur
	}
	return positions
}

// Chars returns the current posting's character spans, or nil if the
// block does not carry them.
func (r *Reader) Chars() []postings.CharSpan {
	if !r.header.HasFeature(FlagHasChars) || r.values == nil {
		return nil
	}
	entry := r.values[r.index]
	n, pos := numeric.DecodeVarint(entry, 0)
	// skip past the positions array to reach the chars array
	for i := 0; i < int(n); i++ {
		_, pos = numeric.DecodeVarint(entry, pos)
	}
	spans := make([]postings.CharSpan, n)
	prevEnd := 0
	for i := 0; i < int(n); i++ {
		var startDelta, length uint64
		startDelta, pos = numeric.DecodeVarint(entry, pos)
		length, pos = numeric.DecodeVarint(entry, pos)
		start := prevEnd + int(startDelta)
		end := start + int(length)
		spans[i] = postings.CharSpan{Start: start, End: end}
		prevEnd = end
	}
	return spans
}

// Payloads returns the current posting's per-position payload bytes, or
// nil if the block does not carry them.
func (r *Reader) Payloads() [][]byte {
	if !r.header.HasFeature(FlagHasPayloads) || r.values == nil {
		return nil
	}
	entry := r.values[r.index]
	n, pos := numeric.DecodeVarint(entry, 0)
	for i := 0; i < int(n); i++ {
		_, pos = numeric.DecodeVarint(entry, pos)
	}
	if r.header.HasFeature(FlagHasChars) {
		for i := 0; i < int(n); i++ {
			_, pos = numeric.DecodeVarint(entry, pos)
			_, pos = numeric.DecodeVarint(entry, pos)
		}
	}
	payloads := make([][]byte, n)
	for i := 0; i < int(n); i++ {
		var plen uint64
		plen, pos = numeric.DecodeVarint(entry, pos)
		payloads[i] = entry[pos : pos+int(plen)]
		pos += int(plen)
	}
	return payloads
}

// Next advances to the next posting, within the block or across the
// forward skip chain. Returns false once no more postings remain.
func (r *Reader) Next() (bool, error) {
	r.index++
	if r.index < int(r.header.Count) {
		return true, nil
	}
	if r.header.NextOffset == 0 {
		r.active = false
		return false, nil
	}
	if err := r.loadBlock(r.header.NextOffset); err != nil {
		return false, err
	}
	return r.active, nil
}

// SkipTo advances to the first posting with id >= target, skipping whole
// blocks via MaxID without decoding their contents (spec.md §8 invariant
// 3: skip correctness).
func (r *Reader) SkipTo(target uint64) (bool, error) {
	for r.active && r.header.MaxID < target {
		if r.header.NextOffset == 0 {
			r.active = false
			return false, nil
		}
		if err := r.loadBlock(r.header.NextOffset); err != nil {
			return false, err
		}
	}
	for r.active && r.ID() < target {
		ok, err := r.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return r.active, nil
}

// BlockQuality returns an upper bound on the score of any posting in the
// current block, given quality (a scorer's max_quality-style bound
// function over (max_weight, min_length, max_length)).
func (r *Reader) BlockQuality(quality func(maxWeight float32, minLength, maxLength int) float64) float64 {
	return quality(r.header.MaxWeight, numeric.ByteToLength(r.header.MinLength), numeric.ByteToLength(r.header.MaxLength))
}

// SkipToQuality advances whole blocks until the next block could contain
// a posting scoring above min, per the given quality bound function.
// Returns false once the term is exhausted without finding such a block.
func (r *Reader) SkipToQuality(min float64, quality func(maxWeight float32, minLength, maxLength int) float64) (bool, error) {
	for r.active && r.BlockQuality(quality) < min {
		if r.header.NextOffset == 0 {
			r.active = false
			return false, nil
		}
		if err := r.loadBlock(r.header.NextOffset); err != nil {
			return false, err
		}
	}
	return r.active, nil
}
