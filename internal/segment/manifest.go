package segment

import (
	"encoding/binary"
	"errors"
	"sort"
)

var errBadManifest = errors.New("segment: malformed manifest directory")

// trmMagic tags the trailing directory of a .trm file: one file per
// segment holding every field's term dictionary region bytes and
// top-level index back to back, followed by a directory recording each
// field's byte ranges so a single file can serve every field instead of
// one file per field.
var trmMagic = [4]byte{'T', 'r', 'm', 'D'}

// flnMagic tags the trailing directory of a .fln file, the field-lengths
// analogue of trmMagic.
var flnMagic = [4]byte{'F', 'l', 'n', 'D'}

type trmFieldEntry struct {
	field       string
	regionStart uint64
	regionLen   uint64
	indexStart  uint64
	indexLen    uint64
}

// encodeTrmFile lays out a segment's per-field term dictionaries as
// [region bytes][index bytes] for each field in sorted field-name order,
// followed by a directory and 12-byte footer (magic + directory offset).
func encodeTrmFile(perField map[string]struct {
	RegionBytes []byte
	Index       []byte
}) []byte {
	names := make([]string, 0, len(perField))
	for name := range perField {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []byte
	entries := make([]trmFieldEntry, 0, len(names))
	for _, name := range names {
		fv := perField[name]
		regionStart := uint64(len(out))
		out = append(out, fv.RegionBytes...)
		indexStart := uint64(len(out))
		out = append(out, fv.Index...)
		entries = append(entries, trmFieldEntry{
			field:       name,
			regionStart: regionStart,
			regionLen:   uint64(len(fv.RegionBytes)),
			indexStart:  indexStart,
			indexLen:    uint64(len(fv.Index)),
		})
	}

	dirOffset := uint64(len(out))
	out = append(out, encodeUint32(uint32(len(entries)))...)
	for _, e := range entries {
		out = append(out, encodeUint16(uint16(len(e.field)))...)
		out = append(out, e.field...)
		out = append(out, encodeUint64(e.regionStart)...)
		out = append(out, encodeUint64(e.regionLen)...)
		out = append(out, encodeUint64(e.indexStart)...)
		out = append(out, encodeUint64(e.indexLen)...)
	}

	footer := make([]byte, 12)
	copy(footer[0:4], trmMagic[:])
	binary.BigEndian.PutUint64(footer[4:12], dirOffset)
	out = append(out, footer...)
	return out
}

// decodeTrmDirectory reads the trailing directory of a .trm file given
// its full contents, returning each field's byte ranges within buf.
func decodeTrmDirectory(buf []byte) (map[string]trmFieldEntry, error) {
	if len(buf) < 12 {
		return nil, errBadManifest
	}
	footer := buf[len(buf)-12:]
	if string(footer[0:4]) != string(trmMagic[:]) {
		return nil, errBadManifest
	}
	dirOffset := binary.BigEndian.Uint64(footer[4:12])

	pos := int(dirOffset)
	count := decodeUint32(buf[pos:])
	pos += 4

	out := make(map[string]trmFieldEntry, count)
	for i := uint32(0); i < count; i++ {
		nameLen := int(decodeUint16(buf[pos:]))
		pos += 2
		name := string(buf[pos : pos+nameLen])
		pos += nameLen
		regionStart := decodeUint64(buf[pos:])
		pos += 8
		regionLen := decodeUint64(buf[pos:])
		pos += 8
		indexStart := decodeUint64(buf[pos:])
		pos += 8
		indexLen := decodeUint64(buf[pos:])
		pos += 8
		out[name] = trmFieldEntry{
			field:       name,
			regionStart: regionStart,
			regionLen:   regionLen,
			indexStart:  indexStart,
			indexLen:    indexLen,
		}
	}
	return out, nil
}

type flnFieldEntry struct {
	field  string
	start  uint64
	length uint64
}

// encodeFlnFile lays out each scored field's dense length-byte array back
// to back, followed by a directory and 12-byte footer.
func encodeFlnFile(perField map[string][]byte) []byte {
	names := make([]string, 0, len(perField))
	for name := range perField {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []byte
	entries := make([]flnFieldEntry, 0, len(names))
	for _, name := range names {
		b := perField[name]
		start := uint64(len(out))
		out = append(out, b...)
		entries = append(entries, flnFieldEntry{field: name, start: start, length: uint64(len(b))})
	}

	dirOffset := uint64(len(out))
	out = append(out, encodeUint32(uint32(len(entries)))...)
	for _, e := range entries {
		out = append(out, encodeUint16(uint16(len(e.field)))...)
		out = append(out, e.field...)
		out = append(out, encodeUint64(e.start)...)
		out = append(out, encodeUint64(e.length)...)
	}

	footer := make([]byte, 12)
	copy(footer[0:4], flnMagic[:])
	binary.BigEndian.PutUint64(footer[4:12], dirOffset)
	out = append(out, footer...)
	return out
}

func decodeFlnDirectory(buf []byte) (map[string]flnFieldEntry, error) {
	if len(buf) < 12 {
		return nil, errBadManifest
	}
	footer := buf[len(buf)-12:]
	if string(footer[0:4]) != string(flnMagic[:]) {
		return nil, errBadManifest
	}
	dirOffset := binary.BigEndian.Uint64(footer[4:12])

	pos := int(dirOffset)
	count := decodeUint32(buf[pos:])
	pos += 4

	out := make(map[string]flnFieldEntry, count)
	for i := uint32(0); i < count; i++ {
		nameLen := int(decodeUint16(buf[pos:]))
		pos += 2
		name := string(buf[pos : pos+nameLen])
		pos += nameLen
		start := decodeUint64(buf[pos:])
		pos += 8
		length := decodeUint64(buf[pos:])
		pos += 8
		out[name] = flnFieldEntry{field: name, start: start, length: length}
	}
	return out, nil
}

// encodeFdtFile serializes a stored-fields blob and its docnum→offset
// index into a single file: the blob, then the offsets as a fixed-width
// uint64 array, then a 12-byte footer recording the blob length so a
// reader can split the two regions back apart.
func encodeFdtFile(blob []byte, offsets []uint64) []byte {
	out := append([]byte(nil), blob...)
	for _, off := range offsets {
		out = append(out, encodeUint64(off)...)
	}
	footer := make([]byte, 12)
	binary.BigEndian.PutUint64(footer[0:8], uint64(len(blob)))
	binary.BigEndian.PutUint32(footer[8:12], uint32(len(offsets)))
	return append(out, footer...)
}

func decodeFdtFile(buf []byte) (blob []byte, offsets []uint64, err error) {
	if len(buf) < 12 {
		return nil, nil, errBadManifest
	}
	footer := buf[len(buf)-12:]
	blobLen := binary.BigEndian.Uint64(footer[0:8])
	count := binary.BigEndian.Uint32(footer[8:12])

	blob = buf[:blobLen]
	offsets = make([]uint64, count)
	pos := int(blobLen)
	for i := uint32(0); i < count; i++ {
		offsets[i] = decodeUint64(buf[pos:])
		pos += 8
	}
	return blob, offsets, nil
}

func encodeUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint16(buf []byte) uint16 { return binary.BigEndian.Uint16(buf) }
func decodeUint32(buf []byte) uint32 { return binary.BigEndian.Uint32(buf) }
func decodeUint64(buf []byte) uint64 { return binary.BigEndian.Uint64(buf) }
