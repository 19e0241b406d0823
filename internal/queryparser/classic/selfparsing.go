package classic

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
)

// NumericSelfParser implements SelfParsingField for schema.KindNumeric
// fields: a bare term is an exact-match single-point range, and
// "[a TO b]"/"{a TO b}" parses each bound with strconv according to
// Field.NumericFloat.
type NumericSelfParser struct {
	Field schema.FieldType
}

func (p NumericSelfParser) ParseTerm(field, text string, boost float64) (query.Query, error) {
	return p.ParseRange(field, &text, &text, false, false, boost)
}

func (p NumericSelfParser) ParseRange(field string, start, end *string, startExcl, endExcl bool, boost float64) (query.Query, error) {
	var q *query.TermRangeQuery
	if p.Field.NumericFloat {
		s, e, err := p.parseFloatBounds(start, end)
		if err != nil {
			return nil, err
		}
		q = query.NewFloatRange(field, s, e, startExcl, endExcl)
	} else {
		s, e, err := p.parseIntBounds(start, end)
		if err != nil {
			return nil, err
		}
		q = query.NewNumericRange(p.Field, field, s, e, startExcl, endExcl)
	}
	q.BoostValue = boost
	return q, nil
}

func (p NumericSelfParser) parseIntBounds(start, end *string) (s, e *int64, err error) {
	if start != nil {
		v, err := strconv.ParseInt(*start, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("classic: invalid numeric range start %q: %w", *start, err)
		}
		s = &v
	}
	if end != nil {
		v, err := strconv.ParseInt(*end, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("classic: invalid numeric range end %q: %w", *end, err)
		}
		e = &v
	}
	return s, e, nil
}

func (p NumericSelfParser) parseFloatBounds(start, end *string) (s, e *float64, err error) {
	if start != nil {
		v, err := strconv.ParseFloat(*start, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("classic: invalid numeric range start %q: %w", *start, err)
		}
		s = &v
	}
	if end != nil {
		v, err := strconv.ParseFloat(*end, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("classic: invalid numeric range end %q: %w", *end, err)
		}
		e = &v
	}
	return s, e, nil
}

// datetimeFieldType is the fixed sortable encoding a Datetime field is
// indexed under (UnixMicro as a signed 64-bit integer), matching
// schema.NewDatetimeFieldType.
var datetimeFieldType = schema.FieldType{NumericBits: 64, NumericSigned: true}

// DatetimeSelfParser implements SelfParsingField for schema.KindDatetime
// fields, accepting only absolute RFC3339 timestamps. The natural-
// language relative-date grammar (parsedate.py's DatetimePlugin/
// DateLocale, e.g. "next tuesday", "3 days ago") is out of scope here;
// callers wanting that vocabulary pre-resolve it to RFC3339 before
// calling Parse.
type DatetimeSelfParser struct{}

func (p DatetimeSelfParser) ParseTerm(field, text string, boost float64) (query.Query, error) {
	return p.ParseRange(field, &text, &text, false, false, boost)
}

func (p DatetimeSelfParser) ParseRange(field string, start, end *string, startExcl, endExcl bool, boost float64) (query.Query, error) {
	s, e, err := p.parseBounds(start, end)
	if err != nil {
		return nil, err
	}
	q := query.NewNumericRange(datetimeFieldType, field, s, e, startExcl, endExcl)
	q.BoostValue = boost
	return q, nil
}

func (p DatetimeSelfParser) parseBounds(start, end *string) (s, e *int64, err error) {
	if start != nil {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return nil, nil, fmt.Errorf("classic: invalid datetime range start %q: %w", *start, err)
		}
		v := t.UnixMicro()
		s = &v
	}
	if end != nil {
		t, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			return nil, nil, fmt.Errorf("classic: invalid datetime range end %q: %w", *end, err)
		}
		v := t.UnixMicro()
		e = &v
	}
	return s, e, nil
}
