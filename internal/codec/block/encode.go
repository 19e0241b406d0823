package block

import (
	"math"

	"github.com/cinderfts/cinder/internal/postings"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// Limit is the default maximum posting count per block (spec.md §4.2's
// "blocklimit", default 128).
const Limit = 128

// Encode packs tuples (already sorted by ascending DocID, len(tuples) <=
// Limit) into a Header plus its body bytes. nextOffset is the absolute
// file offset of the following block, or 0 for the last block of a term.
func Encode(tuples []postings.Tuple, nextOffset uint64) (Header, []byte) {
	ids := make([]uint64, len(tuples))
	var maxWeight float32
	minLength, maxLength := uint8(255), uint8(0)
	uniform := true
	for i, t := range tuples {
		ids[i] = t.DocID
		if t.Weight > maxWeight {
			maxWeight = t.Weight
		}
		if i > 0 && t.Weight != tuples[0].Weight {
			uniform = false
		}
		lb := numeric.LengthToByte(t.Length)
		if lb < minLength {
			minLength = lb
		}
		if lb > maxLength {
			maxLength = lb
		}
	}
	if len(tuples) == 0 {
		minLength = 0
	}

	idEnc, idBuf := encodeIDs(ids)

	var weightBuf []byte
	if uniform && len(tuples) > 0 {
		weightBuf = encodeFloat32(tuples[0].Weight)
	} else {
		weightBuf = make([]byte, 0, len(tuples)*4)
		for _, t := range tuples {
			weightBuf = append(weightBuf, encodeFloat32(t.Weight)...)
		}
	}

	var flags uint8
	hasPositions, hasChars, hasPayloads := false, false, false
	for _, t := range tuples {
		if t.HasPositions() {
			hasPositions = true
		}
		if t.HasChars() {
			hasChars = true
		}
		if t.HasPayloads() {
			hasPayloads = true
		}
	}
	if hasPositions {
		flags |= FlagHasPositions
	}
	if hasChars {
		flags |= FlagHasChars
	}
	if hasPayloads {
		flags |= FlagHasPayloads
	}
	if uniform {
		flags |= FlagUniformWeight
	}

	lengthBuf := make([]byte, len(tuples))
	for i, t := range tuples {
		lengthBuf[i] = numeric.LengthToByte(t.Length)
	}

	valueBuf := encodeValues(tuples, hasPositions, hasChars, hasPayloads)

	header := Header{
		Flags:      flags,
		IDEncoding: idEnc,
		Count:      uint16(len(tuples)),
		IDsLen:     uint32(len(idBuf)),
		WeightsLen: uint32(len(weightBuf)),
		NextOffset: nextOffset,
		MaxID:      lastOrZero(ids),
		MaxWeight:  maxWeight,
		MinLength:  minLength,
		MaxLength:  maxLength,
	}

	body := make([]byte, 0, len(idBuf)+len(weightBuf)+len(lengthBuf)+len(valueBuf))
	body = append(body, idBuf...)
	body = append(body, weightBuf...)
	body = append(body, lengthBuf...)
	body = append(body, valueBuf...)
	return header, body
}

func lastOrZero(ids []uint64) uint64 {
	if len(ids) == 0 {
		return 0
	}
	return ids[len(ids)-1]
}

func encodeFloat32(f float32) []byte {
	buf := make([]byte, 4)
	bits := math.Float32bits(f)
	buf[0] = byte(bits >> 24)
	buf[1] = byte(bits >> 16)
	buf[2] = byte(bits >> 8)
	buf[3] = byte(bits)
	return buf
}

// encodeValues lays out the per-posting variable-width value payload:
// each posting's entry is prefixed with its own byte length so a reader
// can skip over postings without decoding position/char/payload data it
// does not need.
func encodeValues(tuples []postings.Tuple, hasPositions, hasChars, hasPayloads bool) []byte {
	if !hasPositions && !hasChars && !hasPayloads {
		return nil
	}
	var out []byte
	for _, t := range tuples {
		var entry []byte
		entry = numeric.AppendVarint(entry, uint64(len(t.Positions)))
		prevPos := 0
		for _, p := range t.Positions {
			entry = numeric.AppendVarint(entry, uint64(p-prevPos))
			prevPos = p
		}
		if hasChars {
			prevEnd := 0
			for _, c := range t.Chars {
				entry = numeric.AppendVarint(entry, uint64(c.Start-prevEnd))
				entry = numeric.AppendVarint(entry, uint64(c.End-c.Start))
				prevEnd = c.End
			}
		}
		if hasPayloads {
			for _, p := range t.Payloads {
				entry = numeric.AppendVarint(entry, uint64(len(p)))
				entry = append(entry, p...)
			}
		}
		out = numeric.AppendVarint(out, uint64(len(entry)))
		out = append(out, entry...)
	}
	return out
}
