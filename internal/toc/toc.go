// Package toc implements the table of contents spec.md §6 describes:
// the versioned, generation-numbered file that names an index's current
// schema and live segments. A commit publishes a new generation by
// writing the TOC to a temp name and atomically renaming it into place;
// readers open the highest generation present and never see a partial
// write, per spec.md §5's "writers serialized, readers lock-free"
// scheduling model.
package toc

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/segment"
	"github.com/cinderfts/cinder/internal/storage"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/seginfo"
)

// Magic is the 4-byte ASCII tag at the start of every TOC file.
var Magic = [4]byte{'T', 'O', 'C', '1'}

// Version is the current TOC layout version written by Encode.
const Version int32 = 1

// TOC is one published generation's record of an index's schema and
// segment set, matching spec.md §6's
// "< magic:4, version:i32, generation:i64, schema_blob:varbytes,
// n_segments:u32, [segment_record]×n, created_unix_micros:i64 >".
type TOC struct {
	Generation        int64
	Schema            *schema.Schema
	Segments          []segment.Info
	CreatedUnixMicros int64
}

// Encode serializes t into its on-disk byte representation.
func (t *TOC) Encode() []byte {
	schemaBlob := t.Schema.Encode()

	buf := make([]byte, 0, 64+len(schemaBlob)+len(t.Segments)*48)
	buf = append(buf, Magic[:]...)

	var versionBuf [4]byte
	binary.LittleEndian.PutUint32(versionBuf[:], uint32(Version))
	buf = append(buf, versionBuf[:]...)

	var genBuf [8]byte
	binary.LittleEndian.PutUint64(genBuf[:], uint64(t.Generation))
	buf = append(buf, genBuf[:]...)

	var blobLenBuf [4]byte
	binary.LittleEndian.PutUint32(blobLenBuf[:], uint32(len(schemaBlob)))
	buf = append(buf, blobLenBuf[:]...)
	buf = append(buf, schemaBlob...)

	var nSegBuf [4]byte
	binary.LittleEndian.PutUint32(nSegBuf[:], uint32(len(t.Segments)))
	buf = append(buf, nSegBuf[:]...)

	for _, rec := range t.Segments {
		buf = appendSegmentRecord(buf, rec)
	}

	var createdBuf [8]byte
	binary.LittleEndian.PutUint64(createdBuf[:], uint64(t.CreatedUnixMicros))
	buf = append(buf, createdBuf[:]...)

	return buf
}

// appendSegmentRecord encodes one segment_record: a varbytes segment id
// (16-byte ids hex-encoded, so length-prefixed rather than fixed-width
// to stay forward-compatible with a different id scheme), doc_count:u64,
// del_generation:u64.
func appendSegmentRecord(buf []byte, rec segment.Info) []byte {
	var idLenBuf [2]byte
	binary.LittleEndian.PutUint16(idLenBuf[:], uint16(len(rec.ID)))
	buf = append(buf, idLenBuf[:]...)
	buf = append(buf, rec.ID...)

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], rec.DocCount)
	buf = append(buf, countBuf[:]...)

	var delGenBuf [8]byte
	binary.LittleEndian.PutUint64(delGenBuf[:], rec.DelGeneration)
	buf = append(buf, delGenBuf[:]...)

	return buf
}

func readSegmentRecord(buf []byte, pos int) (segment.Info, int, error) {
	if pos+2 > len(buf) {
		return segment.Info{}, 0, fmt.Errorf("toc: truncated segment record id length")
	}
	idLen := int(binary.LittleEndian.Uint16(buf[pos : pos+2]))
	pos += 2

	if pos+idLen+16 > len(buf) {
		return segment.Info{}, 0, fmt.Errorf("toc: truncated segment record")
	}
	id := string(buf[pos : pos+idLen])
	pos += idLen

	docCount := binary.LittleEndian.Uint64(buf[pos : pos+8])
	pos += 8
	delGen := binary.LittleEndian.Uint64(buf[pos : pos+8])
	pos += 8

	return segment.Info{ID: id, DocCount: docCount, DelGeneration: delGen}, pos, nil
}

// Decode parses a TOC previously produced by Encode, failing with a
// FileHeaderError on magic mismatch per spec.md §6's "readers verify the
// magic and fail with FileHeaderError on mismatch".
func Decode(buf []byte) (*TOC, error) {
	if len(buf) < 4 {
		return nil, cerrors.NewFileHeaderError(nil, "").WithDetail("reason", "toc too short")
	}
	if string(buf[0:4]) != string(Magic[:]) {
		return nil, cerrors.NewFileHeaderError(nil, "").WithDetail("reason", "bad toc magic")
	}
	pos := 4

	if pos+4 > len(buf) {
		return nil, fmt.Errorf("toc: truncated version field")
	}
	version := int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	if version != Version {
		return nil, fmt.Errorf("toc: unsupported version %d", version)
	}

	if pos+8 > len(buf) {
		return nil, fmt.Errorf("toc: truncated generation field")
	}
	generation := int64(binary.LittleEndian.Uint64(buf[pos : pos+8]))
	pos += 8

	if pos+4 > len(buf) {
		return nil, fmt.Errorf("toc: truncated schema blob length")
	}
	blobLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4

	if pos+blobLen > len(buf) {
		return nil, fmt.Errorf("toc: truncated schema blob")
	}
	sch, err := schema.Decode(buf[pos : pos+blobLen])
	if err != nil {
		return nil, fmt.Errorf("toc: decoding schema blob: %w", err)
	}
	pos += blobLen

	if pos+4 > len(buf) {
		return nil, fmt.Errorf("toc: truncated segment count")
	}
	nSegments := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4

	segments := make([]segment.Info, 0, nSegments)
	for i := 0; i < nSegments; i++ {
		rec, next, err := readSegmentRecord(buf, pos)
		if err != nil {
			return nil, err
		}
		segments = append(segments, rec)
		pos = next
	}

	if pos+8 > len(buf) {
		return nil, fmt.Errorf("toc: truncated created_unix_micros field")
	}
	created := int64(binary.LittleEndian.Uint64(buf[pos : pos+8]))
	pos += 8

	return &TOC{
		Generation:        generation,
		Schema:            sch,
		Segments:          segments,
		CreatedUnixMicros: created,
	}, nil
}

// Write publishes t as the new current generation for indexName: it
// encodes t, writes it to a temp file, and atomically renames it to the
// generation's final name so a concurrent reader never observes a
// partially-written TOC.
func Write(store storage.Storage, indexName string, t *TOC) error {
	finalName := seginfo.TOCFileName(indexName, t.Generation)
	tempName := finalName + ".tmp"

	out, err := store.CreateFile(tempName)
	if err != nil {
		return err
	}
	if _, err := out.Write(t.Encode()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return store.RenameFile(tempName, finalName, true)
}

// Open reads indexName's latest published generation, returning
// TocNotFoundError if no TOC file exists yet, per spec.md §7's distinction between "no generation exists" and "the
// generation has zero segments" (the latter is EmptyIndexError, raised by
// callers once they see a zero-length Segments slice, not by Open itself).
func Open(store storage.Storage, dataDir, indexName string) (*TOC, error) {
	path, generation, err := seginfo.FindLatestTOC(dataDir, indexName)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, cerrors.NewTocNotFoundError(indexName)
	}

	f, err := store.OpenFile(seginfo.TOCFileName(indexName, generation))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, f.Len())
	if len(buf) > 0 {
		if _, err := f.ReadAt(buf, 0); err != nil {
			return nil, err
		}
	}

	return Decode(buf)
}

// LiveFileNames returns the set of file names owned by t: its own TOC
// file plus every segment's codec files, used by the writer's commit
// step (f) to compute which files are no longer owned by any live TOC
// and may be deleted.
func LiveFileNames(indexName string, t *TOC) map[string]bool {
	live := make(map[string]bool)
	live[seginfo.TOCFileName(indexName, t.Generation)] = true

	fixedExts := []string{"pst", "trm", "fln", "fdt"}
	for _, rec := range t.Segments {
		for _, ext := range fixedExts {
			live[seginfo.SegmentFileName(rec.ID, ext)] = true
		}
		live[seginfo.SegmentFileName(fmt.Sprintf("%s.del", rec.ID), fmt.Sprintf("%d", rec.DelGeneration))] = true

		if t.Schema != nil {
			for _, field := range t.Schema.FieldNames() {
				ft, _ := t.Schema.Field(field)
				if ft.Column != nil {
					live[seginfo.SegmentFileName(rec.ID, "col."+field)] = true
				}
				if ft.IndexedForm.Positions {
					live[seginfo.SegmentFileName(rec.ID, "vec."+field)] = true
				}
			}
		}
	}
	return live
}

// OrphanedFiles returns the members of candidates not referenced by live,
// the writer commit step (f)'s "delete files owned by no live TOC".
// candidates is deliberately the caller's responsibility rather than a
// raw store.List(): the writer knows WRITELOCK's name and which of this
// index's segment/TOC naming patterns apply, so it can hand in only the
// names eligible for cleanup and never risk this function proposing its
// own lock file or another index's files for deletion.
func OrphanedFiles(candidates []string, live map[string]bool) []string {
	var orphans []string
	for _, name := range candidates {
		if !live[name] {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return orphans
}
