package coldata

import "github.com/cinderfts/cinder/pkg/numeric"

// FieldLengthsWriter builds the dense per-docnum array of 8-bit
// log-approximated lengths spec.md §4.4 describes for each scored field.
type FieldLengthsWriter struct {
	bytes []byte
}

// NewFieldLengthsWriter returns an empty FieldLengthsWriter.
func NewFieldLengthsWriter() *FieldLengthsWriter {
	return &FieldLengthsWriter{}
}

// Add appends docnum's length (the next docnum in sequence).
func (w *FieldLengthsWriter) Add(length int) {
	w.bytes = append(w.bytes, numeric.LengthToByte(length))
}

// Finish returns the accumulated length-byte array.
func (w *FieldLengthsWriter) Finish() []byte { return w.bytes }

// FieldLengthsReader gives random access to a field's per-docnum length
// approximation.
type FieldLengthsReader struct {
	bytes []byte
}

// NewFieldLengthsReader wraps a byte array previously produced by
// FieldLengthsWriter.Finish.
func NewFieldLengthsReader(b []byte) *FieldLengthsReader {
	return &FieldLengthsReader{bytes: b}
}

// Get returns docnum's approximate length.
func (r *FieldLengthsReader) Get(docnum uint64) int {
	return numeric.ByteToLength(r.bytes[docnum])
}

// Len returns the number of documents with a recorded length.
func (r *FieldLengthsReader) Len() int { return len(r.bytes) }
