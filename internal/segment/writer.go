package segment

import (
	"github.com/cinderfts/cinder/internal/codec/block"
	"github.com/cinderfts/cinder/internal/codec/coldata"
	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/codec/vectors"
	"github.com/cinderfts/cinder/internal/postings"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/numeric"
	"github.com/cinderfts/cinder/pkg/options"
	"github.com/cinderfts/cinder/pkg/seginfo"
)

// termOccurrence accumulates one distinct term's per-document occurrence
// data while a field's analyzer is consumed, before it is turned into a
// postings.Tuple.
type termOccurrence struct {
	count     int
	positions []int
	chars     []postings.CharSpan
	payloads  [][]byte
}

// vectorDoc holds one document's accumulated vector entries for a field
// awaiting encoding at Finish.
type vectorDoc struct {
	docnum  uint64
	entries []vectors.Entry
}

// Writer builds one new segment, implementing the per-document pipeline
// and finish_segment sort-merge of spec.md §4.11.
type Writer struct {
	store   storage.Storage
	schema  *schema.Schema
	opts    *options.Options
	segID   string
	docCount uint64

	spill *spiller

	fieldLengthWriters map[string]*coldata.FieldLengthsWriter
	columnWriters      map[string]coldata.ColumnWriter
	columnBuilds       map[string]func() columnBuild
	stored             *coldata.StoredFieldsWriter

	vectorDocs map[string][]vectorDoc // keyed by field
}

// NewWriter allocates a fresh segment id and opens a Writer that spills
// posting tuples to tmp (typically store.TempStorage()).
func NewWriter(store storage.Storage, tmp storage.Storage, sch *schema.Schema, opts *options.Options) (*Writer, error) {
	segID, err := seginfo.NewSegmentID()
	if err != nil {
		return nil, err
	}
	sp, err := newSpiller(tmp)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		store:              store,
		schema:             sch,
		opts:               opts,
		segID:              segID,
		spill:              sp,
		fieldLengthWriters: make(map[string]*coldata.FieldLengthsWriter),
		columnWriters:      make(map[string]coldata.ColumnWriter),
		columnBuilds:       make(map[string]func() columnBuild),
		stored:             coldata.NewStoredFieldsWriter(),
		vectorDocs:         make(map[string][]vectorDoc),
	}

	for _, name := range sch.FieldNames() {
		ft, _ := sch.Field(name)
		if ft.Scored {
			w.fieldLengthWriters[name] = coldata.NewFieldLengthsWriter()
		}
		if ft.Column != nil {
			w.initColumnWriter(name, *ft.Column)
		}
	}
	return w, nil
}

func (w *Writer) initColumnWriter(name string, spec schema.ColumnSpec) {
	switch spec.Type {
	case schema.ColumnVarBytes:
		cw := coldata.NewVarBytesWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish(), Offsets: cw.Offsets(), Lengths: cw.Lengths()}
		}
	case schema.ColumnFixedBytes:
		cw := coldata.NewFixedBytesWriter(spec.Width)
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish(), Width: spec.Width}
		}
	case schema.ColumnRefBytes:
		cw := coldata.NewRefBytesWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			refBuf := cw.Finish()
			return columnBuild{Type: spec.Type, Dict: cw.Dict(), RefBuf: refBuf, Count: w.docCountInt()}
		}
	case schema.ColumnCompactInt:
		cw := coldata.NewCompactIntWriter(spec.Width * 8)
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish(), Width: spec.Width}
		}
	case schema.ColumnBKD:
		cw := coldata.NewBKDColumnWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish()}
		}
	case schema.ColumnBitset:
		cw := coldata.NewBitsetWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish(), Count: w.docCountInt()}
		}
	case schema.ColumnRoaring:
		cw := coldata.NewRoaringColumnWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish()}
		}
	case schema.ColumnCompressedBytes:
		cw := coldata.NewCompressedBytesWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			offsets, lengths := cw.Offsets()
			return columnBuild{Type: spec.Type, Blob: cw.Finish(), Offsets: offsets, Lengths: lengths}
		}
	case schema.ColumnPickled:
		cw := coldata.NewPickledWriter()
		w.columnWriters[name] = cw
		w.columnBuilds[name] = func() columnBuild {
			return columnBuild{Type: spec.Type, Blob: cw.Finish(), Offsets: cw.Offsets()}
		}
	}
}

func (w *Writer) docCountInt() int { return int(w.docCount) }

// AddDocument runs the steps of spec.md §4.11 for one document: assign a
// docnum, analyze every field, record lengths/columns/stored values, and
// spill posting tuples.
func (w *Writer) AddDocument(doc *schema.Document) error {
	docnum := w.docCount
	w.docCount++

	storedValues := make(map[string]any)

	for _, name := range w.schema.FieldNames() {
		ft, _ := w.schema.Field(name)
		value, has := doc.Get(name)

		if ft.Stored && has {
			storedValues[name] = value
		}

		if ft.Scored {
			length := 0
			if has {
				var err error
				length, err = w.indexField(docnum, name, ft, value)
				if err != nil {
					return err
				}
			}
			w.fieldLengthWriters[name].Add(length)
		} else if has && (ft.IndexedForm.Weights || ft.IndexedForm.Lengths) {
			if _, err := w.indexField(docnum, name, ft, value); err != nil {
				return err
			}
		}

		if ft.Column != nil {
			colValue, err := columnValueFor(ft, value, has)
			if err != nil {
				return err
			}
			if colValue != nil {
				if err := w.columnWriters[name].Add(docnum, colValue); err != nil {
					return err
				}
			} else if ft.Column.Type == schema.ColumnBitset || ft.Column.Type == schema.ColumnRoaring {
				// sparse presence columns: nothing to record when absent/false.
			} else {
				if err := w.columnWriters[name].Add(docnum, zeroColumnValue(*ft.Column)); err != nil {
					return err
				}
			}
		}
	}

	return w.stored.Add(storedValues)
}

// indexField analyzes value for field name and emits its posting tuples
// (and, when the field tracks positions, a term-vector entry set),
// returning the field's token length for the length-byte store.
func (w *Writer) indexField(docnum uint64, name string, ft schema.FieldType, value any) (int, error) {
	occurrences, order, length, err := tokenize(ft, value)
	if err != nil {
		return 0, cerrors.NewSchemaError(name, err.Error())
	}
	if len(occurrences) == 0 {
		return length, nil
	}

	boost := float32(ft.EffectiveBoost(w.opts))
	var vecEntries []vectors.Entry
	trackVectors := ft.IndexedForm.Positions

	for _, term := range order {
		occ := occurrences[term]
		tuple := postings.Tuple{
			DocID:  docnum,
			Field:  name,
			Term:   []byte(term),
			Length: length,
			Weight: boost * float32(occ.count),
		}
		if ft.IndexedForm.Positions {
			tuple.Positions = occ.positions
		}
		if ft.IndexedForm.Chars {
			tuple.Chars = occ.chars
		}
		if ft.IndexedForm.Payloads {
			tuple.Payloads = occ.payloads
		}
		if err := w.spill.Add(tuple); err != nil {
			return 0, err
		}
		if trackVectors {
			vecEntries = append(vecEntries, vectors.Entry{
				Term:      []byte(term),
				Weight:    tuple.Weight,
				Positions: occ.positions,
				Chars:     occ.chars,
				Payloads:  occ.payloads,
			})
		}
	}

	if trackVectors && len(vecEntries) > 0 {
		w.vectorDocs[name] = append(w.vectorDocs[name], vectorDoc{docnum: docnum, entries: vecEntries})
	}
	return length, nil
}

// Finish closes the writer: sort-merges the spilled posting tuples,
// streams the grouped runs through the block encoder and term
// dictionary, and writes every codec file this segment needs.
func (w *Writer) Finish() (Info, error) {
	groups, err := w.spill.FinishGrouped()
	if err != nil {
		return Info{}, err
	}

	postingOut, err := w.store.CreateFile(seginfo.SegmentFileName(w.segID, "pst"))
	if err != nil {
		return Info{}, err
	}
	defer postingOut.Close()

	termWriters := make(map[string]*termdict.Writer)
	for _, group := range groups {
		field := group[0].Field
		tw, ok := termWriters[field]
		if !ok {
			tw = termdict.NewWriter()
			termWriters[field] = tw
		}

		offset := uint64(postingOut.Tell())
		blocks := block.EncodeTerm(group, offset)

		var maxWeight float32
		var minLength, maxLength = 255, 0
		var docFreq, totalTF uint64
		for _, t := range group {
			if t.Weight > maxWeight {
				maxWeight = t.Weight
			}
			if t.Length < minLength {
				minLength = t.Length
			}
			if t.Length > maxLength {
				maxLength = t.Length
			}
			docFreq++
			totalTF += uint64(t.Weight)
		}

		for _, b := range blocks {
			if _, err := postingOut.Write(block.EncodeHeader(b.Header)); err != nil {
				return Info{}, err
			}
			if _, err := postingOut.Write(b.Body); err != nil {
				return Info{}, err
			}
		}

		tw.Add(termdict.Key{Term: group[0].Term}, termdict.TermInfo{
			DocFreq:          docFreq,
			TotalTermFreq:    totalTF,
			MinLength:        uint8(numeric.LengthToByte(minLength)),
			MaxLength:        uint8(numeric.LengthToByte(maxLength)),
			MaxWeight:        maxWeight,
			FirstBlockOffset: offset,
		})
	}

	trmPerField := make(map[string]struct {
		RegionBytes []byte
		Index       []byte
	})
	for field, tw := range termWriters {
		region, index := tw.Build()
		trmPerField[field] = struct {
			RegionBytes []byte
			Index       []byte
		}{RegionBytes: region, Index: termdict.EncodeIndex(index)}
	}
	if len(trmPerField) > 0 {
		out, err := w.store.CreateFile(seginfo.SegmentFileName(w.segID, "trm"))
		if err != nil {
			return Info{}, err
		}
		defer out.Close()
		if _, err := out.Write(encodeTrmFile(trmPerField)); err != nil {
			return Info{}, err
		}
	}

	if len(w.fieldLengthWriters) > 0 {
		flnPerField := make(map[string][]byte, len(w.fieldLengthWriters))
		for field, flw := range w.fieldLengthWriters {
			flnPerField[field] = flw.Finish()
		}
		out, err := w.store.CreateFile(seginfo.SegmentFileName(w.segID, "fln"))
		if err != nil {
			return Info{}, err
		}
		defer out.Close()
		if _, err := out.Write(encodeFlnFile(flnPerField)); err != nil {
			return Info{}, err
		}
	}

	{
		blob, offsets := w.stored.Finish()
		out, err := w.store.CreateFile(seginfo.SegmentFileName(w.segID, "fdt"))
		if err != nil {
			return Info{}, err
		}
		defer out.Close()
		if _, err := out.Write(encodeFdtFile(blob, offsets)); err != nil {
			return Info{}, err
		}
	}

	for field, build := range w.columnBuilds {
		out, err := w.store.CreateFile(seginfo.SegmentFileName(w.segID, "col."+field))
		if err != nil {
			return Info{}, err
		}
		if _, err := out.Write(encodeColumnFile(build())); err != nil {
			out.Close()
			return Info{}, err
		}
		out.Close()
	}

	for field, docs := range w.vectorDocs {
		if err := w.writeVectorFile(field, docs); err != nil {
			return Info{}, err
		}
	}

	return Info{ID: w.segID, DocCount: w.docCount, DelGeneration: 0}, nil
}

func (w *Writer) writeVectorFile(field string, docs []vectorDoc) error {
	out, err := w.store.CreateFile(seginfo.SegmentFileName(w.segID, "vec."+field))
	if err != nil {
		return err
	}
	defer out.Close()

	vw := vectors.NewWriter()
	var buf []byte
	dir := make([]vecDocEntry, 0, len(docs))
	for _, d := range docs {
		start := uint64(len(buf))
		blocks, terms := vw.Encode(d.entries, 0)
		chunk := encodeVectorChunk(blocks, terms)
		buf = append(buf, chunk...)
		dir = append(dir, vecDocEntry{docnum: d.docnum, offset: start, length: uint64(len(chunk))})
	}
	buf = append(buf, encodeVecDirectory(dir)...)
	_, err = out.Write(buf)
	return err
}

// The methods below decompose AddDocument's per-piece writes into
// standalone calls so Merge (merge.go) can replay a live document's
// already-indexed stored/length/column/vector/posting data into a new
// Writer without re-running the analyzer, which merging must never do:
// re-analyzing a stored value can disagree with what was indexed
// originally if the analyzer is non-deterministic or has since changed.

// ReserveDoc allocates and returns the next docnum, mirroring
// AddDocument's own `docnum := w.docCount; w.docCount++`.
func (w *Writer) ReserveDoc() uint64 {
	docnum := w.docCount
	w.docCount++
	return docnum
}

// SetDocCount overrides the writer's document count directly. Merge uses
// this once, after replaying every live document through ReserveDoc,
// since the columnBuilds closures for Bitset/RefBytes columns
// read w.docCount lazily at Finish rather than per-Add.
func (w *Writer) SetDocCount(n uint64) { w.docCount = n }

// AppendStoredFields replays one document's already-assembled stored
// value map, the merge counterpart of AddDocument's `w.stored.Add`.
func (w *Writer) AppendStoredFields(fields map[string]any) error {
	return w.stored.Add(fields)
}

// AppendFieldLength replays one scored field's length for the document
// most recently reserved via ReserveDoc.
func (w *Writer) AppendFieldLength(field string, length int) {
	if flw, ok := w.fieldLengthWriters[field]; ok {
		flw.Add(length)
	}
}

// AppendColumnValue replays one field's already-decoded column value for
// docnum, the merge counterpart of AddDocument's `w.columnWriters[name].Add`.
func (w *Writer) AppendColumnValue(field string, docnum uint64, value any) error {
	cw, ok := w.columnWriters[field]
	if !ok {
		return nil
	}
	return cw.Add(docnum, value)
}

// AppendVectorEntries replays one document's already-decoded term-vector
// entries for field, the merge counterpart of indexField's
// `w.vectorDocs[name] = append(...)`.
func (w *Writer) AppendVectorEntries(field string, docnum uint64, entries []vectors.Entry) {
	if len(entries) == 0 {
		return
	}
	w.vectorDocs[field] = append(w.vectorDocs[field], vectorDoc{docnum: docnum, entries: entries})
}

// SpillTuple replays one already-decoded posting tuple (docid already
// renumbered into the merged segment's space) into the sorting spiller,
// the merge counterpart of indexField's `w.spill.Add(tuple)`.
func (w *Writer) SpillTuple(t postings.Tuple) error {
	return w.spill.Add(t)
}
