package schema

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// schemaCodecVersion is bumped whenever the encoded layout changes
// incompatibly; Decode rejects any other version.
const schemaCodecVersion = 1

// Encode produces the "self-describing serialization of the schema"
// spec.md §6 calls schema_blob: one entry per field, carrying enough of
// FieldType to reconstruct it, plus the field's analyzer by name (via
// analysis.Named) rather than by value, since an Analyzer is behavior,
// not data.
func (s *Schema) Encode() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, byte(schemaCodecVersion))
	buf = numeric.AppendVarint(buf, uint64(len(s.names)))

	for _, name := range s.names {
		ft := s.fields[name]
		buf = appendString(buf, name)
		buf = append(buf, byte(ft.Kind))

		analyzerName := ""
		if named, ok := ft.Analyzer.(analysis.Named); ok {
			analyzerName = named.Name()
		}
		buf = appendString(buf, analyzerName)

		var flags byte
		if ft.Stored {
			flags |= 1 << 0
		}
		if ft.Scored {
			flags |= 1 << 1
		}
		if ft.SelfParsing {
			flags |= 1 << 2
		}
		if ft.NumericSigned {
			flags |= 1 << 3
		}
		if ft.NumericFloat {
			flags |= 1 << 4
		}
		if ft.Column != nil {
			flags |= 1 << 5
		}
		buf = append(buf, flags)

		var ifFlags byte
		if ft.IndexedForm.Lengths {
			ifFlags |= 1 << 0
		}
		if ft.IndexedForm.Weights {
			ifFlags |= 1 << 1
		}
		if ft.IndexedForm.Positions {
			ifFlags |= 1 << 2
		}
		if ft.IndexedForm.Chars {
			ifFlags |= 1 << 3
		}
		if ft.IndexedForm.Payloads {
			ifFlags |= 1 << 4
		}
		buf = append(buf, ifFlags)

		boostBits := make([]byte, 8)
		binary.LittleEndian.PutUint64(boostBits, math.Float64bits(ft.Boost))
		buf = append(buf, boostBits...)

		buf = numeric.AppendVarint(buf, uint64(ft.NumericBits))

		if ft.Column != nil {
			buf = append(buf, byte(ft.Column.Type))
			buf = numeric.AppendVarint(buf, uint64(ft.Column.Width))
		}
	}

	return buf
}

// Decode reconstructs a Schema from a blob previously produced by
// Encode. Analyzer identity is resolved through analysis.Lookup; a
// field encoded with a name Lookup does not recognize decodes with a
// nil Analyzer rather than failing outright, since an unanalyzed field
// (stored/column-only) is a legitimate and common case sharing the same
// empty-name encoding.
func Decode(blob []byte) (*Schema, error) {
	if len(blob) < 1 {
		return nil, fmt.Errorf("schema: blob too short")
	}
	if blob[0] != schemaCodecVersion {
		return nil, fmt.Errorf("schema: unsupported codec version %d", blob[0])
	}
	pos := 1

	nFields, next := numeric.DecodeVarint(blob, pos)
	pos = next

	sch := New()
	for i := uint64(0); i < nFields; i++ {
		name, next := readString(blob, pos)
		pos = next

		if pos >= len(blob) {
			return nil, fmt.Errorf("schema: truncated blob reading field %q's kind", name)
		}
		kind := Kind(blob[pos])
		pos++

		analyzerName, next := readString(blob, pos)
		pos = next

		if pos+10 > len(blob) {
			return nil, fmt.Errorf("schema: truncated blob reading field %q's flags", name)
		}
		flags := blob[pos]
		ifFlags := blob[pos+1]
		boostBits := binary.LittleEndian.Uint64(blob[pos+2 : pos+10])
		pos += 10

		if pos >= len(blob) {
			return nil, fmt.Errorf("schema: truncated blob reading field %q's numeric bits", name)
		}
		numericBits, next := numeric.DecodeVarint(blob, pos)
		pos = next

		ft := FieldType{
			Kind:          kind,
			Stored:        flags&(1<<0) != 0,
			Scored:        flags&(1<<1) != 0,
			SelfParsing:   flags&(1<<2) != 0,
			NumericSigned: flags&(1<<3) != 0,
			NumericFloat:  flags&(1<<4) != 0,
			Boost:         math.Float64frombits(boostBits),
			NumericBits:   int(numericBits),
			IndexedForm: IndexedForm{
				Lengths:   ifFlags&(1<<0) != 0,
				Weights:   ifFlags&(1<<1) != 0,
				Positions: ifFlags&(1<<2) != 0,
				Chars:     ifFlags&(1<<3) != 0,
				Payloads:  ifFlags&(1<<4) != 0,
			},
		}

		if analyzerName != "" {
			if a, ok := analysis.Lookup(analyzerName); ok {
				ft.Analyzer = a
			}
		}

		if flags&(1<<5) != 0 {
			if pos+1 > len(blob) {
				return nil, fmt.Errorf("schema: truncated blob reading field %q's column type", name)
			}
			colType := ColumnType(blob[pos])
			pos++
			width, next := numeric.DecodeVarint(blob, pos)
			pos = next
			ft.Column = &ColumnSpec{Type: colType, Width: int(width)}
		}

		if err := sch.AddField(name, ft); err != nil {
			return nil, fmt.Errorf("schema: reconstructing field %q: %w", name, err)
		}
	}

	return sch, nil
}

func appendString(dst []byte, s string) []byte {
	dst = numeric.AppendVarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func readString(src []byte, pos int) (string, int) {
	n, next := numeric.DecodeVarint(src, pos)
	end := next + int(n)
	return string(src[next:end]), end
}
