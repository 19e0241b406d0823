// Package segment implements the immutable, independently-readable unit
// spec.md §2-§3 builds everything else on top of: a closed set of codec
// files (term dictionary, postings, field lengths, stored fields,
// columns, vectors) plus a mutable deletion bitmap sidecar.
package segment

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/cinderfts/cinder/internal/codec/block"
	"github.com/cinderfts/cinder/internal/codec/coldata"
	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/codec/vectors"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/seginfo"
)

// Info is the TOC-visible record of one segment: its id, document count,
// and deletion generation, matching what a TOC's segment_record carries
// (spec.md §6's TOC contents).
type Info struct {
	ID            string
	DocCount      uint64
	DelGeneration uint64
}

// Segment is an opened, immutable segment: read-only handles onto its
// codec files plus the live deletion bitmap layered on top.
type Segment struct {
	info         Info
	store        storage.Storage
	schema       *schema.Schema
	postingFile  storage.InputFile
	termDict     map[string]*termdict.Reader // keyed by field name
	fieldLengths map[string]*coldata.FieldLengthsReader
	columns      map[string]coldata.ColumnReader
	storedFields *coldata.StoredFieldsReader
	vectorBufs   map[string][]byte
	vectorDirs   map[string]map[uint64]vecDocEntry
	deleted      *roaring.Bitmap
}

// blockFileSource adapts an InputFile to block.BlockSource by reading a
// fixed-size header then the remaining body up to the next block's
// offset (or EOF for the last block).
type blockFileSource struct {
	file storage.InputFile
	name string
}

func (s *blockFileSource) ReadBlockAt(offset uint64) (block.Header, []byte, error) {
	headerBuf := make([]byte, block.HeaderSize)
	if _, err := s.file.ReadAt(headerBuf, int64(offset)); err != nil {
		return block.Header{}, nil, cerrors.NewStorageError(err, cerrors.ErrorCodeHeaderReadFailure, "failed to read posting block header").
			WithFileName(s.name).WithOffset(int(offset))
	}
	header, err := block.DecodeHeader(headerBuf)
	if err != nil {
		return block.Header{}, nil, cerrors.NewStorageError(err, cerrors.ErrorCodeHeaderReadFailure, "posting block header failed magic verification").
			WithFileName(s.name).WithOffset(int(offset))
	}
	bodyStart := int64(offset) + int64(block.HeaderSize)
	end := s.file.Len()
	if header.NextOffset != 0 {
		end = int64(header.NextOffset)
	}
	body := make([]byte, end-bodyStart)
	if _, err := s.file.ReadAt(body, bodyStart); err != nil {
		return block.Header{}, nil, cerrors.NewStorageError(err, cerrors.ErrorCodePayloadReadFailure, "failed to read posting block body").
			WithFileName(s.name).WithOffset(int(bodyStart))
	}
	return header, body, nil
}

// readWholeFile reads name's entire contents into memory. Segment codec
// files (term dictionaries, field lengths, stored fields) are read in
// full on open since the dictionary/column readers operate on in-memory
// byte slices rather than seeking the backing file directly.
func readWholeFile(store storage.Storage, name string) ([]byte, error) {
	f, err := store.OpenFile(name)
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
	return buf, nil
}

// Open opens an existing segment's codec files under store, keyed by
// info.ID per pkg/seginfo's <segid>.<ext> naming.
func Open(store storage.Storage, sch *schema.Schema, info Info) (*Segment, error) {
	postingFile, err := store.OpenFile(seginfo.SegmentFileName(info.ID, "pst"))
	if err != nil {
		return nil, err
	}

	s := &Segment{
		info:         info,
		store:        store,
		schema:       sch,
		postingFile:  postingFile,
		termDict:     make(map[string]*termdict.Reader),
		fieldLengths: make(map[string]*coldata.FieldLengthsReader),
		columns:      make(map[string]coldata.ColumnReader),
		vectorBufs:   make(map[string][]byte),
		vectorDirs:   make(map[string]map[uint64]vecDocEntry),
		deleted:      roaring.New(),
	}

	if sch != nil {
		for _, field := range sch.FieldNames() {
			ft, _ := sch.Field(field)
			if ft.Column != nil {
				colName := seginfo.SegmentFileName(info.ID, "col."+field)
				exists, err := store.FileExists(colName)
				if err != nil {
					return nil, err
				}
				if exists {
					buf, err := readWholeFile(store, colName)
					if err != nil {
						return nil, err
					}
					reader, err := decodeColumnFile(buf)
					if err != nil {
						return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeSegmentCorrupted, "corrupted column file").WithFileName(colName)
					}
					s.columns[field] = reader
				}
			}

			if ft.IndexedForm.Positions {
				vecName := seginfo.SegmentFileName(info.ID, "vec."+field)
				exists, err := store.FileExists(vecName)
				if err != nil {
					return nil, err
				}
				if exists {
					buf, err := readWholeFile(store, vecName)
					if err != nil {
						return nil, err
					}
					dir, err := decodeVecDirectory(buf)
					if err != nil {
						return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeSegmentCorrupted, "corrupted vector directory").WithFileName(vecName)
					}
					s.vectorBufs[field] = buf
					s.vectorDirs[field] = dir
				}
			}
		}
	}

	trmName := seginfo.SegmentFileName(info.ID, "trm")
	if exists, _ := store.FileExists(trmName); exists {
		buf, err := readWholeFile(store, trmName)
		if err != nil {
			return nil, err
		}
		dir, err := decodeTrmDirectory(buf)
		if err != nil {
			return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeSegmentCorrupted, "corrupted term dictionary directory").WithFileName(trmName)
		}
		for field, e := range dir {
			region := buf[e.regionStart : e.regionStart+e.regionLen]
			index := termdict.DecodeIndex(buf[e.indexStart : e.indexStart+e.indexLen])
			s.termDict[field] = termdict.NewReader(region, index)
		}
	}

	flnName := seginfo.SegmentFileName(info.ID, "fln")
	if exists, _ := store.FileExists(flnName); exists {
		buf, err := readWholeFile(store, flnName)
		if err != nil {
			return nil, err
		}
		dir, err := decodeFlnDirectory(buf)
		if err != nil {
			return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeSegmentCorrupted, "corrupted field lengths directory").WithFileName(flnName)
		}
		for field, e := range dir {
			s.fieldLengths[field] = coldata.NewFieldLengthsReader(buf[e.start : e.start+e.length])
		}
	}

	fdtName := seginfo.SegmentFileName(info.ID, "fdt")
	if exists, _ := store.FileExists(fdtName); exists {
		buf, err := readWholeFile(store, fdtName)
		if err != nil {
			return nil, err
		}
		blob, offsets, err := decodeFdtFile(buf)
		if err != nil {
			return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeSegmentCorrupted, "corrupted stored fields file").WithFileName(fdtName)
		}
		s.storedFields = coldata.NewStoredFieldsReader(blob, offsets)
	}

	delName := seginfo.SegmentFileName(fmt.Sprintf("%s.del", info.ID), fmt.Sprintf("%d", info.DelGeneration))
	if exists, _ := store.FileExists(delName); exists {
		delFile, err := store.OpenFile(delName)
		if err != nil {
			return nil, err
		}
		defer delFile.Close()
		buf := make([]byte, delFile.Len())
		if _, err := delFile.ReadAt(buf, 0); err != nil {
			return nil, err
		}
		bm := roaring.New()
		if _, err := bm.FromBuffer(buf); err != nil {
			return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeRecoveryFailed, "corrupted deletion bitmap sidecar").WithFileName(delName)
		}
		s.deleted = bm
	}

	return s, nil
}

// TermDictionary returns field's term dictionary reader, or nil if the
// field carries no terms in this segment.
func (s *Segment) TermDictionary(field string) *termdict.Reader {
	return s.termDict[field]
}

// FieldLengths returns field's per-docnum length reader, or nil if the
// field is not scored in this segment.
func (s *Segment) FieldLengths(field string) *coldata.FieldLengthsReader {
	return s.fieldLengths[field]
}

// StoredFields returns the segment's stored-fields reader, or nil if the
// segment has no .fdt file (Writer.Finish always writes one).
func (s *Segment) StoredFields() *coldata.StoredFieldsReader {
	return s.storedFields
}

// Column returns field's typed column reader, or nil if the field has no
// column in this segment.
func (s *Segment) Column(field string) coldata.ColumnReader {
	return s.columns[field]
}

// Vector returns docnum's term vector reader for field, or nil if the
// document has no recorded vector for that field.
func (s *Segment) Vector(field string, docnum uint64) (*vectors.Reader, error) {
	dir, ok := s.vectorDirs[field]
	if !ok {
		return nil, nil
	}
	entry, ok := dir[docnum]
	if !ok {
		return nil, nil
	}
	buf := s.vectorBufs[field]
	return decodeVectorChunk(buf[entry.offset:entry.offset+entry.length], seginfo.SegmentFileName(s.info.ID, "vec."+field))
}

// PostingSource returns the block.BlockSource backing this segment's
// posting file, used by a field's term dictionary entries to locate
// their first block.
func (s *Segment) PostingSource() block.BlockSource {
	return &blockFileSource{file: s.postingFile, name: seginfo.SegmentFileName(s.info.ID, "pst")}
}

// DocCount returns the segment's total document count, including
// deleted documents (callers combine this with IsDeleted).
func (s *Segment) DocCount() uint64 { return s.info.DocCount }

// IsDeleted reports whether docnum has been deleted.
func (s *Segment) IsDeleted(docnum uint64) bool {
	return s.deleted.Contains(uint32(docnum))
}

// LiveCount returns the number of non-deleted documents.
func (s *Segment) LiveCount() uint64 {
	return s.info.DocCount - uint64(s.deleted.GetCardinality())
}

// Delete marks docnum as deleted. The caller is responsible for
// persisting the updated bitmap via WriteDeletions at the next
// generation.
func (s *Segment) Delete(docnum uint64) {
	s.deleted.Add(uint32(docnum))
}

// DeletedBitmap returns the live deletion bitmap (shared, not copied).
func (s *Segment) DeletedBitmap() *roaring.Bitmap { return s.deleted }

// WriteDeletions persists the current deletion bitmap as a new sidecar
// file at generation, per spec.md's "deletion bitmap ... written as a
// sidecar file keyed by segment id and generation."
func (s *Segment) WriteDeletions(generation uint64) error {
	name := seginfo.SegmentFileName(fmt.Sprintf("%s.del", s.info.ID), fmt.Sprintf("%d", generation))
	out, err := s.store.CreateFile(name)
	if err != nil {
		return err
	}
	defer out.Close()
	buf, err := s.deleted.ToBytes()
	if err != nil {
		return err
	}
	_, err = out.Write(buf)
	return err
}

// ByteSize estimates the segment's on-disk footprint by summing its
// fixed-extension codec files, used by the tiered merge policy to rank
// candidates by size; per-field column/vector files are omitted since
// their count varies with the schema and the fixed files dominate for
// any text-heavy index.
func (s *Segment) ByteSize() uint64 {
	var total int64
	for _, ext := range [...]string{"pst", "trm", "fln", "fdt"} {
		if n, err := s.store.FileLength(seginfo.SegmentFileName(s.info.ID, ext)); err == nil {
			total += n
		}
	}
	return uint64(total)
}

// ID returns the segment's id.
func (s *Segment) ID() string { return s.info.ID }

// Info returns the segment's current TOC record, the writer's commit
// path needs it to build the next generation's segment_record list
// without reaching into unexported fields.
func (s *Segment) Info() Info { return s.info }

// SetDelGeneration updates the deletion generation recorded for this
// segment after WriteDeletions has persisted a new sidecar file at that
// generation.
func (s *Segment) SetDelGeneration(generation uint64) {
	s.info.DelGeneration = generation
}

// Close releases the segment's open file handles.
func (s *Segment) Close() error {
	return s.postingFile.Close()
}
