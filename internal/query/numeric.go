package query

import (
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// NewNumericRange builds a TermRangeQuery over a Numeric field's
// single sortable-bytes term per document, encoding the Go int64/
// float64 bounds with the same transform internal/segment's writer
// used to index the field (pkg/numeric.ToSortableInt/ToSortableFloat64),
// per spec.md's S2 numeric range example. A nil start or end leaves
// that side open.
func NewNumericRange(ft schema.FieldType, field string, start, end *int64, startExcl, endExcl bool) *TermRangeQuery {
	width := ft.NumericBits / 8
	var startBytes, endBytes []byte
	if start != nil {
		startBytes = encodeSortable(ft, *start, width)
	}
	if end != nil {
		endBytes = encodeSortable(ft, *end, width)
	}
	return NewTermRange(field, startBytes, endBytes, startExcl, endExcl)
}

// NewFloatRange is NewNumericRange's analogue for Numeric(float)
// fields, which sort by IEEE-754 bit pattern rather than integer
// offset.
func NewFloatRange(field string, start, end *float64, startExcl, endExcl bool) *TermRangeQuery {
	var startBytes, endBytes []byte
	if start != nil {
		startBytes = encodeSortableBytes(numeric.ToSortableFloat64(*start), 8)
	}
	if end != nil {
		endBytes = encodeSortableBytes(numeric.ToSortableFloat64(*end), 8)
	}
	return NewTermRange(field, startBytes, endBytes, startExcl, endExcl)
}

func encodeSortable(ft schema.FieldType, v int64, width int) []byte {
	sortable := numeric.ToSortableInt(ft.NumericBits, ft.NumericSigned, v)
	return encodeSortableBytes(sortable, width)
}

// encodeSortableBytes renders the low width bytes of v big-endian, the
// same layout internal/segment/fieldvalue.go uses so a range query's
// bounds compare identically to the indexed term bytes.
func encodeSortableBytes(v uint64, width int) []byte {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}
