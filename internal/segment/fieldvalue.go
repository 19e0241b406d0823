package segment

import (
	"fmt"
	"strings"
	"time"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/postings"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/pkg/numeric"
)

// tokenize turns one field's raw document value into its distinct-term
// occurrence map, per spec.md §4.11 step 2 ("run the analyzer in index
// mode; collect per-term (length, weight, positions, chars, payloads)").
// order preserves first-seen term order so finish_segment's later
// dictionary insertion order is deterministic per document (actual
// cross-document ordering happens in the spiller's sort-merge).
func tokenize(ft schema.FieldType, value any) (occ map[string]*termOccurrence, order []string, length int, err error) {
	occ = make(map[string]*termOccurrence)

	add := func(text string, position, startChar, endChar int, payload []byte) {
		o, ok := occ[text]
		if !ok {
			o = &termOccurrence{}
			occ[text] = o
			order = append(order, text)
		}
		o.count++
		if ft.IndexedForm.Positions {
			o.positions = append(o.positions, position)
		}
		if ft.IndexedForm.Chars {
			o.chars = append(o.chars, postings.CharSpan{Start: startChar, End: endChar})
		}
		if ft.IndexedForm.Payloads && payload != nil {
			o.payloads = append(o.payloads, payload)
		}
		length++
	}

	switch ft.Kind {
	case schema.KindText:
		text, ok := value.(string)
		if !ok {
			return nil, nil, 0, fmt.Errorf("expected string value, got %T", value)
		}
		if ft.Analyzer == nil {
			return nil, nil, 0, fmt.Errorf("text field has no analyzer")
		}
		stream := ft.Analyzer.Analyze(text, analysis.ModeIndex)
		for stream.Next() {
			tok := stream.Token()
			add(tok.Text, tok.Position, tok.StartChar, tok.EndChar, tok.Payload)
		}

	case schema.KindKeyword:
		text, ok := value.(string)
		if !ok {
			return nil, nil, 0, fmt.Errorf("expected string value, got %T", value)
		}
		if ft.Analyzer != nil {
			stream := ft.Analyzer.Analyze(text, analysis.ModeIndex)
			pos := 0
			for stream.Next() {
				tok := stream.Token()
				add(tok.Text, pos, tok.StartChar, tok.EndChar, nil)
				pos++
			}
		} else {
			for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' }) {
				add(strings.TrimSpace(part), 0, 0, 0, nil)
			}
		}

	case schema.KindID:
		text, ok := value.(string)
		if !ok {
			return nil, nil, 0, fmt.Errorf("expected string value, got %T", value)
		}
		add(text, 0, 0, len(text), nil)

	case schema.KindNumeric:
		sortable, err := numericSortable(ft, value)
		if err != nil {
			return nil, nil, 0, err
		}
		width := ft.NumericBits / 8
		add(string(encodeSortableBytes(sortable, width)), 0, 0, 0, nil)

	case schema.KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, nil, 0, fmt.Errorf("expected bool value, got %T", value)
		}
		v := byte(0)
		if b {
			v = 1
		}
		add(string([]byte{v}), 0, 0, 0, nil)

	case schema.KindDatetime:
		t, ok := value.(time.Time)
		if !ok {
			return nil, nil, 0, fmt.Errorf("expected time.Time value, got %T", value)
		}
		sortable := numeric.ToSortableInt(64, true, t.UnixMicro())
		add(string(encodeSortableBytes(sortable, 8)), 0, 0, 0, nil)

	default:
		// KindStored and KindColumn carry no inverted-index content.
	}

	return occ, order, length, nil
}

// encodeSortableBytes renders the low width bytes of v big-endian, the
// same layout coldata.CompactIntWriter uses, so a numeric/datetime
// field's single indexed term sorts identically to its column value.
func encodeSortableBytes(v uint64, width int) []byte {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

func numericSortable(ft schema.FieldType, value any) (uint64, error) {
	if ft.NumericFloat {
		switch ft.NumericBits {
		case 32:
			f, err := toFloat32(value)
			if err != nil {
				return 0, err
			}
			return uint64(numeric.ToSortableFloat32(f)), nil
		default:
			f, err := toFloat64(value)
			if err != nil {
				return 0, err
			}
			return numeric.ToSortableFloat64(f), nil
		}
	}
	i, err := toInt64(value)
	if err != nil {
		return 0, err
	}
	return numeric.ToSortableInt(ft.NumericBits, ft.NumericSigned, i), nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected an integer value, got %T", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a float value, got %T", value)
	}
}

func toFloat32(value any) (float32, error) {
	f, err := toFloat64(value)
	return float32(f), err
}

// columnValueFor converts a raw document value into the shape the
// field's ColumnWriter.Add expects, returning nil when the field is
// absent from the document (the caller decides whether that means
// "skip" for a sparse presence column or "write a zero" for a dense
// one).
func columnValueFor(ft schema.FieldType, value any, has bool) (any, error) {
	if !has {
		return nil, nil
	}
	switch ft.Column.Type {
	case schema.ColumnVarBytes, schema.ColumnCompressedBytes:
		return columnBytes(value)
	case schema.ColumnFixedBytes:
		if ft.Kind == schema.KindBoolean {
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("expected bool value, got %T", value)
			}
			if b {
				return []byte{1}, nil
			}
			return []byte{0}, nil
		}
		return columnBytes(value)
	case schema.ColumnRefBytes:
		return columnBytes(value)
	case schema.ColumnCompactInt, schema.ColumnBKD:
		if ft.Kind == schema.KindDatetime {
			t, ok := value.(time.Time)
			if !ok {
				return nil, fmt.Errorf("expected time.Time value, got %T", value)
			}
			return numeric.ToSortableInt(64, true, t.UnixMicro()), nil
		}
		return numericSortable(ft, value)
	case schema.ColumnBitset, schema.ColumnRoaring:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool value, got %T", value)
		}
		if !b {
			return nil, nil
		}
		return true, nil
	case schema.ColumnPickled:
		return value, nil
	default:
		return nil, nil
	}
}

func columnBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("expected string or []byte value, got %T", value)
	}
}

// zeroColumnValue returns the value to Add for a document missing a
// field backed by a dense column type, keeping every such column's
// per-docnum array aligned with the segment's docnum space.
func zeroColumnValue(spec schema.ColumnSpec) any {
	switch spec.Type {
	case schema.ColumnVarBytes, schema.ColumnCompressedBytes, schema.ColumnRefBytes:
		return []byte{}
	case schema.ColumnFixedBytes:
		return make([]byte, spec.Width)
	case schema.ColumnCompactInt, schema.ColumnBKD:
		return uint64(0)
	case schema.ColumnPickled:
		return ""
	default:
		return nil
	}
}
