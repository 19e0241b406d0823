// Package coldata implements the three parallel per-document stores of
// spec.md §4.4: stored fields, field lengths, and typed columns.
package coldata

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/cinderfts/cinder/pkg/numeric"
)

func init() {
	// Datetime fields store a time.Time directly in the stored-fields map;
	// gob needs every concrete type passed through an interface{} (here,
	// map[string]any) registered up front.
	gob.Register(time.Time{})
	// Pickled column values are gob-encoded through an `any`, so a map
	// value needs its concrete type registered the same way.
	gob.Register(map[string]any{})
}

// StoredFieldsWriter accumulates one opaque field-name-to-value blob per
// docnum, serialized with encoding/gob since stored values are
// heterogeneous Go values (the Pickled column type's analogue), and
// produces a length-prefixed blob stream plus a docnum→offset index.
type StoredFieldsWriter struct {
	blob    []byte
	offsets []uint64
}

// NewStoredFieldsWriter returns an empty StoredFieldsWriter.
func NewStoredFieldsWriter() *StoredFieldsWriter {
	return &StoredFieldsWriter{}
}

// Add serializes fields and appends it as docnum's stored-fields entry.
// docnum must equal len(offsets) written so far (monotonically
// non-decreasing, one entry per document).
func (w *StoredFieldsWriter) Add(fields map[string]any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fields); err != nil {
		return err
	}
	w.offsets = append(w.offsets, uint64(len(w.blob)))
	w.blob = numeric.AppendVarint(w.blob, uint64(buf.Len()))
	w.blob = append(w.blob, buf.Bytes()...)
	return nil
}

// Finish returns the accumulated blob and the docnum→offset index.
func (w *StoredFieldsWriter) Finish() (blob []byte, offsets []uint64) {
	return w.blob, w.offsets
}

// StoredFieldsReader gives random access to stored-field blobs by
// docnum.
type StoredFieldsReader struct {
	blob    []byte
	offsets []uint64
}

// NewStoredFieldsReader wraps a blob and index previously produced by
// StoredFieldsWriter.Finish.
func NewStoredFieldsReader(blob []byte, offsets []uint64) *StoredFieldsReader {
	return &StoredFieldsReader{blob: blob, offsets: offsets}
}

// Get decodes docnum's stored fields.
func (r *StoredFieldsReader) Get(docnum uint64) (map[string]any, error) {
	off := r.offsets[docnum]
	length, pos := numeric.DecodeVarint(r.blob, int(off))
	dec := gob.NewDecoder(bytes.NewReader(r.blob[pos : pos+int(length)]))
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Len returns the number of documents with a stored-fields entry.
func (r *StoredFieldsReader) Len() int { return len(r.offsets) }
