// Package termdict implements the two-level term dictionary of spec.md
// §4.3: a sorted region file of (key, value) pairs with prefix-shared
// keys, plus a top-level index of (first_key, last_key, offset, count)
// entries letting a lookup binary-search to the right region before
// scanning within it.
package termdict

import (
	"bytes"
	"math"
	"sort"

	"github.com/cinderfts/cinder/pkg/numeric"
)

// RegionTargetSize is the target uncompressed byte size of one region,
// spec.md §4.3's "~16 KiB target".
const RegionTargetSize = 16 * 1024

// TermInfo is the six-field value spec.md §4.3 associates with a term:
// document frequency, total term frequency, the block-max bounds, and
// the offset of the term's first posting block.
type TermInfo struct {
	DocFreq          uint64
	TotalTermFreq    uint64
	MinLength        uint8
	MaxLength        uint8
	MaxWeight        float32
	FirstBlockOffset uint64
}

// Key is a (field_number, termbytes) dictionary key, compared fieldwise
// then lexically by term.
type Key struct {
	Field uint16
	Term  []byte
}

// Compare orders a before b: by field number, then by term bytes.
func Compare(a, b Key) int {
	if a.Field != b.Field {
		if a.Field < b.Field {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Term, b.Term)
}

// entry is one (key, value) pair as stored in a region, in sorted order.
type entry struct {
	key   Key
	value TermInfo
}

// IndexEntry describes one region: its key span, file offset, and entry
// count, for the top-level binary-searchable index. Exported so a
// segment writer can persist it in a .trm file's trailing index table
// alongside the region bytes.
type IndexEntry struct {
	FirstKey Key
	LastKey  Key
	Offset   uint64
	Count    uint32
}

// Writer accumulates sorted (key, value) pairs and packs them into
// size-bounded regions plus a top-level index, following
// RegionTargetSize.
type Writer struct {
	entries []entry
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Add appends the next (key, value) pair. Callers MUST add keys in
// strictly ascending Compare order; Add does not re-sort.
func (w *Writer) Add(key Key, value TermInfo) {
	w.entries = append(w.entries, entry{key: key, value: value})
}

// Build partitions the accumulated entries into regions bounded by
// RegionTargetSize (estimated from encoded entry size) and returns the
// encoded region bytes (concatenated, ready to write to a .trm file)
// plus the top-level index describing each region's span within that
// byte stream.
func (w *Writer) Build() (regionBytes []byte, index []IndexEntry) {
	var current []entry
	currentSize := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		start := uint64(len(regionBytes))
		encoded := encodeRegion(current)
		regionBytes = append(regionBytes, encoded...)
		index = append(index, IndexEntry{
			FirstKey: current[0].key,
			LastKey:  current[len(current)-1].key,
			Offset:   start,
			Count:    uint32(len(current)),
		})
		current = nil
		currentSize = 0
	}

	for _, e := range w.entries {
		sz := estimateEntrySize(e)
		if currentSize+sz > RegionTargetSize && len(current) > 0 {
			flush()
		}
		current = append(current, e)
		currentSize += sz
	}
	flush()
	return regionBytes, index
}

func estimateEntrySize(e entry) int {
	return len(e.key.Term) + 2 + 8 + 8 + 1 + 1 + 4 + 8
}

// encodeRegion serializes entries with prefix compression: consecutive
// keys sharing a field number and a common term-byte prefix store that
// prefix length once rather than repeating the bytes.
func encodeRegion(entries []entry) []byte {
	var buf []byte
	var prevTerm []byte
	var prevField uint16
	for i, e := range entries {
		prefixLen := 0
		if i > 0 && e.key.Field == prevField {
			prefixLen = commonPrefixLen(prevTerm, e.key.Term)
		}
		suffix := e.key.Term[prefixLen:]

		buf = numeric.AppendVarint(buf, uint64(e.key.Field))
		buf = numeric.AppendVarint(buf, uint64(prefixLen))
		buf = numeric.AppendVarint(buf, uint64(len(suffix)))
		buf = append(buf, suffix...)

		buf = numeric.AppendVarint(buf, e.value.DocFreq)
		buf = numeric.AppendVarint(buf, e.value.TotalTermFreq)
		buf = append(buf, e.value.MinLength, e.value.MaxLength)
		buf = numeric.AppendVarint(buf, uint64(math.Float32bits(e.value.MaxWeight)))
		buf = numeric.AppendVarint(buf, e.value.FirstBlockOffset)

		prevTerm = e.key.Term
		prevField = e.key.Field
	}
	return buf
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// decodeRegion reverses encodeRegion, given the expected entry count.
func decodeRegion(buf []byte, count int) []entry {
	out := make([]entry, count)
	pos := 0
	var prevTerm []byte
	var prevField uint16
	for i := 0; i < count; i++ {
		var fieldV, prefixLenV, suffixLenV uint64
		fieldV, pos = numeric.DecodeVarint(buf, pos)
		prefixLenV, pos = numeric.DecodeVarint(buf, pos)
		suffixLenV, pos = numeric.DecodeVarint(buf, pos)
		suffix := buf[pos : pos+int(suffixLenV)]
		pos += int(suffixLenV)

		var term []byte
		if uint16(fieldV) == prevField && prefixLenV > 0 {
			term = append(term, prevTerm[:prefixLenV]...)
		}
		term = append(term, suffix...)

		var docFreq, totalTF uint64
		docFreq, pos = numeric.DecodeVarint(buf, pos)
		totalTF, pos = numeric.DecodeVarint(buf, pos)
		minLength, maxLength := buf[pos], buf[pos+1]
		pos += 2
		var maxWeightBits, firstBlockOffset uint64
		maxWeightBits, pos = numeric.DecodeVarint(buf, pos)
		firstBlockOffset, pos = numeric.DecodeVarint(buf, pos)

		out[i] = entry{
			key: Key{Field: uint16(fieldV), Term: term},
			value: TermInfo{
				DocFreq:          docFreq,
				TotalTermFreq:    totalTF,
				MinLength:        minLength,
				MaxLength:        maxLength,
				MaxWeight:        math.Float32frombits(uint32(maxWeightBits)),
				FirstBlockOffset: firstBlockOffset,
			},
		}
		prevTerm = term
		prevField = uint16(fieldV)
	}
	return out
}

// EncodeIndex serializes a top-level index to bytes, for the trailer of
// a .trm file following the region bytes.
func EncodeIndex(index []IndexEntry) []byte {
	var buf []byte
	buf = numeric.AppendVarint(buf, uint64(len(index)))
	for _, e := range index {
		buf = numeric.AppendVarint(buf, uint64(e.FirstKey.Field))
		buf = numeric.AppendVarint(buf, uint64(len(e.FirstKey.Term)))
		buf = append(buf, e.FirstKey.Term...)
		buf = numeric.AppendVarint(buf, uint64(e.LastKey.Field))
		buf = numeric.AppendVarint(buf, uint64(len(e.LastKey.Term)))
		buf = append(buf, e.LastKey.Term...)
		buf = numeric.AppendVarint(buf, e.Offset)
		buf = numeric.AppendVarint(buf, uint64(e.Count))
	}
	return buf
}

// DecodeIndex reverses EncodeIndex.
func DecodeIndex(buf []byte) []IndexEntry {
	pos := 0
	n, pos2 := numeric.DecodeVarint(buf, pos)
	pos = pos2
	out := make([]IndexEntry, n)
	for i := 0; i < int(n); i++ {
		var firstField, firstLen, lastField, lastLen, offset, count uint64
		firstField, pos = numeric.DecodeVarint(buf, pos)
		firstLen, pos = numeric.DecodeVarint(buf, pos)
		firstTerm := append([]byte(nil), buf[pos:pos+int(firstLen)]...)
		pos += int(firstLen)
		lastField, pos = numeric.DecodeVarint(buf, pos)
		lastLen, pos = numeric.DecodeVarint(buf, pos)
		lastTerm := append([]byte(nil), buf[pos:pos+int(lastLen)]...)
		pos += int(lastLen)
		offset, pos = numeric.DecodeVarint(buf, pos)
		count, pos = numeric.DecodeVarint(buf, pos)
		out[i] = IndexEntry{
			FirstKey: Key{Field: uint16(firstField), Term: firstTerm},
			LastKey:  Key{Field: uint16(lastField), Term: lastTerm},
			Offset:   offset,
			Count:    uint32(count),
		}
	}
	return out
}

// Reader supports seek/key/value/next/expand_prefix over a decoded
// dictionary, given its region bytes and top-level index.
type Reader struct {
	regionBytes []byte
	index       []IndexEntry
	regionIdx   int
	entries     []entry // current region, decoded lazily on seek/advance
	pos         int
}

// NewReader builds a Reader over previously-written region bytes and
// index.
func NewReader(regionBytes []byte, index []IndexEntry) *Reader {
	return &Reader{regionBytes: regionBytes, index: index}
}

func (r *Reader) loadRegion(ri int) {
	r.regionIdx = ri
	region := r.index[ri]
	r.entries = decodeRegion(r.regionBytes[region.Offset:], int(region.Count))
	r.pos = 0
}

// Seek positions the cursor at the first entry with key >= target.
func (r *Reader) Seek(target Key) bool {
	ri := sort.Search(len(r.index), func(i int) bool {
		return Compare(r.index[i].LastKey, target) >= 0
	})
	if ri == len(r.index) {
		r.entries = nil
		r.pos = 0
		return false
	}
	r.loadRegion(ri)
	r.pos = sort.Search(len(r.entries), func(i int) bool {
		return Compare(r.entries[i].key, target) >= 0
	})
	if r.pos == len(r.entries) {
		// target falls between regions; fast-forward to the next region.
		if ri+1 >= len(r.index) {
			return false
		}
		r.loadRegion(ri + 1)
	}
	return r.pos < len(r.entries)
}

// Key returns the current entry's key. Valid only after a successful
// Seek/Next.
func (r *Reader) Key() Key { return r.entries[r.pos].key }

// Value returns the current entry's TermInfo.
func (r *Reader) Value() TermInfo { return r.entries[r.pos].value }

// Next advances to the next entry, returning false once the dictionary
// is exhausted.
func (r *Reader) Next() bool {
	r.pos++
	if r.pos < len(r.entries) {
		return true
	}
	if r.regionIdx+1 >= len(r.index) {
		return false
	}
	r.loadRegion(r.regionIdx + 1)
	return len(r.entries) > 0
}

// ExpandPrefix returns every key in the dictionary sharing prefix,
// scanning from the first matching region.
func (r *Reader) ExpandPrefix(field uint16, prefix []byte) []Key {
	var out []Key
	if !r.Seek(Key{Field: field, Term: prefix}) {
		return out
	}
	for {
		k := r.Key()
		if k.Field != field || !bytes.HasPrefix(k.Term, prefix) {
			break
		}
		out = append(out, k)
		if !r.Next() {
			break
		}
	}
	return out
}
