// Package block implements the posting block codec of spec.md §4.2 and
// §6: postings for one term are stored as a forward-only chain of blocks,
// each holding at most BlockLimit postings, with a fixed-layout header
// giving the skip bounds (max_id, max_weight, min_length, max_length)
// needed to skip whole blocks without decoding them.
package block

import (
	"encoding/binary"
	"math"

	"github.com/cinderfts/cinder/pkg/numeric"
)

// Magic is the 4-byte ASCII tag at the start of every posting block.
var Magic = [4]byte{'P', 'B', 'L', 'K'}

// idEncoding selects the docid-delta representation chosen for a block,
// the smallest fixed-width variant that fits, falling back to varint.
type idEncoding uint8

const (
	idEncodingByte idEncoding = iota
	idEncodingShort
	idEncodingInt
	idEncodingVarint
)

// Feature flags record which optional value arrays a block carries.
const (
	FlagHasPositions uint8 = 1 << iota
	FlagHasChars
	FlagHasPayloads
	FlagUniformWeight
)

// HeaderSize is the fixed byte size of Header per spec.md §6:
// magic:4, flags:u8, id_encoding:u8, count:u16, ids_len:u32, weights_len:u32,
// next_offset:u64, max_id:u64, max_weight:f32, min_length:u8, max_length:u8.
const HeaderSize = 4 + 1 + 1 + 2 + 4 + 4 + 8 + 8 + 4 + 1 + 1

// Header is one posting block's fixed-width preamble.
type Header struct {
	Flags        uint8
	IDEncoding   idEncoding
	Count        uint16
	IDsLen       uint32
	WeightsLen   uint32
	NextOffset   uint64
	MaxID        uint64
	MaxWeight    float32
	MinLength    uint8
	MaxLength    uint8
}

// HasFeature reports whether flag is set on h.Flags.
func (h Header) HasFeature(flag uint8) bool { return h.Flags&flag != 0 }

// EncodeHeader serializes h into its fixed-width wire form.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	buf[4] = h.Flags
	buf[5] = uint8(h.IDEncoding)
	binary.BigEndian.PutUint16(buf[6:8], h.Count)
	binary.BigEndian.PutUint32(buf[8:12], h.IDsLen)
	binary.BigEndian.PutUint32(buf[12:16], h.WeightsLen)
	binary.BigEndian.PutUint64(buf[16:24], h.NextOffset)
	binary.BigEndian.PutUint64(buf[24:32], h.MaxID)
	binary.BigEndian.PutUint32(buf[32:36], math.Float32bits(h.MaxWeight))
	buf[36] = h.MinLength
	buf[37] = h.MaxLength
	return buf
}

// DecodeHeader parses a Header from the front of buf, returning an error
// if the magic does not match.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errShortBuffer
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	if magic != Magic {
		return Header{}, errBadMagic
	}
	h := Header{
		Flags:      buf[4],
		IDEncoding: idEncoding(buf[5]),
		Count:      binary.BigEndian.Uint16(buf[6:8]),
		IDsLen:     binary.BigEndian.Uint32(buf[8:12]),
		WeightsLen: binary.BigEndian.Uint32(buf[12:16]),
		NextOffset: binary.BigEndian.Uint64(buf[16:24]),
		MaxID:      binary.BigEndian.Uint64(buf[24:32]),
		MaxWeight:  math.Float32frombits(binary.BigEndian.Uint32(buf[32:36])),
		MinLength:  buf[36],
		MaxLength:  buf[37],
	}
	return h, nil
}

// chooseIDEncoding returns the smallest fixed-width encoding that fits
// every delta in deltas, or the varint fallback if none does.
func chooseIDEncoding(deltas []uint64) idEncoding {
	var max uint64
	for _, d := range deltas {
		if d > max {
			max = d
		}
	}
	switch {
	case max <= math.MaxUint8:
		return idEncodingByte
	case max <= math.MaxUint16:
		return idEncodingShort
	case max <= math.MaxUint32:
		return idEncodingInt
	default:
		return idEncodingVarint
	}
}

// encodeIDs delta-encodes the sorted ids into the chosen fixed-width or
// varint representation.
func encodeIDs(ids []uint64) (enc idEncoding, buf []byte) {
	deltas := make([]uint64, len(ids))
	var prev uint64
	for i, id := range ids {
		deltas[i] = id - prev
		prev = id
	}
	enc = chooseIDEncoding(deltas)
	switch enc {
	case idEncodingByte:
		buf = make([]byte, len(deltas))
		for i, d := range deltas {
			buf[i] = byte(d)
		}
	case idEncodingShort:
		buf = make([]byte, len(deltas)*2)
		for i, d := range deltas {
			binary.BigEndian.PutUint16(buf[i*2:], uint16(d))
		}
	case idEncodingInt:
		buf = make([]byte, len(deltas)*4)
		for i, d := range deltas {
			binary.BigEndian.PutUint32(buf[i*4:], uint32(d))
		}
	default:
		for _, d := range deltas {
			buf = numeric.AppendVarint(buf, d)
		}
	}
	return enc, buf
}

// decodeIDs reverses encodeIDs, reconstructing count absolute docids.
func decodeIDs(enc idEncoding, buf []byte, count int) []uint64 {
	ids := make([]uint64, count)
	var cur uint64
	switch enc {
	case idEncodingByte:
		for i := 0; i < count; i++ {
			cur += uint64(buf[i])
			ids[i] = cur
		}
	case idEncodingShort:
		for i := 0; i < count; i++ {
			cur += uint64(binary.BigEndian.Uint16(buf[i*2:]))
			ids[i] = cur
		}
	case idEncodingInt:
		for i := 0; i < count; i++ {
			cur += uint64(binary.BigEndian.Uint32(buf[i*4:]))
			ids[i] = cur
		}
	default:
		pos := 0
		for i := 0; i < count; i++ {
			var d uint64
			d, pos = numeric.DecodeVarint(buf, pos)
			cur += d
			ids[i] = cur
		}
	}
	return ids
}

var errShortBuffer = blockError("block: buffer too short for header")
var errBadMagic = blockError("block: bad magic")

type blockError string

func (e blockError) Error() string { return string(e) }
