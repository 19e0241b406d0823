// Package schema implements the data model of spec.md §3: an ordered
// field-name-to-FieldType mapping plus the Document values indexed against
// it. Per spec.md §9's "Dynamic Schema" design note, FieldType replaces the
// original's class-per-field-type hierarchy with a tagged variant: a
// single FieldType struct whose Kind selects the variant, built by one
// constructor function per kind, with plain fields (Analyzer, SelfParsing,
// Column, ...) in place of duck-typed subclass methods.
package schema

import (
	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/pkg/options"
)

// Kind tags which FieldType variant a field uses.
type Kind uint8

const (
	KindID Kind = iota
	KindText
	KindNumeric
	KindBoolean
	KindDatetime
	KindKeyword
	KindStored
	KindColumn
)

func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindBoolean:
		return "boolean"
	case KindDatetime:
		return "datetime"
	case KindKeyword:
		return "keyword"
	case KindStored:
		return "stored"
	case KindColumn:
		return "column"
	default:
		return "unknown"
	}
}

// ColumnType selects the per-document typed array a field's column is
// stored as (spec.md §4.4).
type ColumnType uint8

const (
	ColumnNone ColumnType = iota
	ColumnVarBytes
	ColumnFixedBytes
	ColumnRefBytes
	ColumnCompactInt
	ColumnBitset
	ColumnRoaring
	ColumnCompressedBytes
	ColumnPickled
	ColumnBKD
)

// IndexedForm names which posting feature arrays a Text-like field stores,
// per spec.md §3's "indexed_form" field.
type IndexedForm struct {
	Lengths   bool
	Weights   bool
	Positions bool
	Chars     bool
	Payloads  bool
}

// FieldType is the tagged-variant field definition spec.md §3 and §9
// describe. Every field in a schema has exactly one FieldType; which of the
// optional struct fields are meaningful is determined by Kind.
type FieldType struct {
	Kind Kind

	// Analyzer produces the token stream used at index and query time.
	// Nil for fields that are not analyzed (Numeric, Boolean, Datetime,
	// Stored-only, Column-only).
	Analyzer analysis.Analyzer

	// Stored records whether the original value is kept in the per-doc
	// stored-fields blob (spec.md §4.4).
	Stored bool

	// Scored records whether a per-document field length is recorded for
	// length-normalized scoring (spec.md §4.4's field-lengths store).
	Scored bool

	// IndexedForm names which posting feature arrays are stored; the zero
	// value (all false) means the field is not inverted at all (used for
	// Stored/Column-only fields).
	IndexedForm IndexedForm

	// Column, when non-nil, gives the per-document column store this
	// field's values are also written to, for fast value lookup/sorting
	// independent of the inverted index.
	Column *ColumnSpec

	// SelfParsing marks fields (Numeric, Datetime) whose query syntax the
	// classic parser hands off wholesale instead of tokenizing.
	SelfParsing bool

	// Boost is this field's default weight multiplier; 0 means "use the
	// schema-level default" (options.DefaultFieldBoost).
	Boost float64

	// Numeric-specific parameters; meaningful only when Kind == KindNumeric.
	NumericBits   int
	NumericSigned bool
	NumericFloat  bool
}

// ColumnSpec describes a field's per-document column store.
type ColumnSpec struct {
	Type ColumnType
	// Width is the fixed element width in bytes, meaningful only for
	// ColumnFixedBytes and ColumnCompactInt.
	Width int
}

// EffectiveBoost returns ft.Boost, falling back to the schema-level
// default when the field did not set its own.
func (ft FieldType) EffectiveBoost(opts *options.Options) float64 {
	if ft.Boost > 0 {
		return ft.Boost
	}
	if opts != nil && opts.SchemaOptions != nil {
		return opts.SchemaOptions.DefaultFieldBoost
	}
	return 1.0
}

// NewIDFieldType builds a field type for short, unanalyzed identifier
// values indexed as a single whole-value term (no positions).
func NewIDFieldType(stored bool) FieldType {
	return FieldType{
		Kind:        KindID,
		Stored:      stored,
		IndexedForm: IndexedForm{Lengths: true, Weights: true},
	}
}

// NewTextFieldType builds a field type for analyzed free text.
func NewTextFieldType(analyzer analysis.Analyzer, stored, positions bool) FieldType {
	return FieldType{
		Kind:     KindText,
		Analyzer: analyzer,
		Stored:   stored,
		Scored:   true,
		IndexedForm: IndexedForm{
			Lengths:   true,
			Weights:   true,
			Positions: positions,
		},
	}
}

// NewKeywordFieldType builds a field type for comma/space separated tags,
// each indexed as a whole term with no internal analysis beyond splitting.
func NewKeywordFieldType(analyzer analysis.Analyzer, stored bool) FieldType {
	return FieldType{
		Kind:        KindKeyword,
		Analyzer:    analyzer,
		Stored:      stored,
		IndexedForm: IndexedForm{Lengths: true, Weights: true},
	}
}

// NewNumericFieldType builds a field type for sortable numeric values.
func NewNumericFieldType(bits int, signed, isFloat bool, stored, sortable bool) FieldType {
	ft := FieldType{
		Kind:          KindNumeric,
		Stored:        stored,
		SelfParsing:   true,
		NumericBits:   bits,
		NumericSigned: signed,
		NumericFloat:  isFloat,
		IndexedForm:   IndexedForm{Lengths: true, Weights: true},
	}
	if sortable {
		ft.Column = &ColumnSpec{Type: ColumnCompactInt, Width: bits / 8}
	}
	return ft
}

// NewNumericFieldTypeBKD builds a sortable numeric field type backed by a
// BKDColumn instead of a plain CompactInt column, for fields with many
// distinct values and frequent range queries where a block k-d tree's
// range pruning beats CompactInt's dense per-docnum scan.
func NewNumericFieldTypeBKD(bits int, signed, isFloat bool, stored bool) FieldType {
	return FieldType{
		Kind:          KindNumeric,
		Stored:        stored,
		SelfParsing:   true,
		NumericBits:   bits,
		NumericSigned: signed,
		NumericFloat:  isFloat,
		IndexedForm:   IndexedForm{Lengths: true, Weights: true},
		Column:        &ColumnSpec{Type: ColumnBKD, Width: bits / 8},
	}
}

// NewBooleanFieldType builds a field type for true/false values.
func NewBooleanFieldType(stored bool) FieldType {
	return FieldType{
		Kind:        KindBoolean,
		Stored:      stored,
		IndexedForm: IndexedForm{Lengths: true, Weights: true},
		Column:      &ColumnSpec{Type: ColumnFixedBytes, Width: 1},
	}
}

// NewDatetimeFieldType builds a field type for timestamps, stored as a
// sortable 64-bit integer (Unix microseconds).
func NewDatetimeFieldType(stored bool) FieldType {
	return FieldType{
		Kind:        KindDatetime,
		Stored:      stored,
		SelfParsing: true,
		IndexedForm: IndexedForm{Lengths: true, Weights: true},
		Column:      &ColumnSpec{Type: ColumnCompactInt, Width: 8},
	}
}

// NewStoredFieldType builds a field type that is stored but never
// inverted, used for payload-only data returned with hits but never
// searched on.
func NewStoredFieldType() FieldType {
	return FieldType{Kind: KindStored, Stored: true}
}

// NewColumnFieldType builds a field type that is only available through
// its column store (no inverted index), used for sort/facet-only values.
func NewColumnFieldType(col ColumnSpec) FieldType {
	return FieldType{Kind: KindColumn, Column: &col}
}
