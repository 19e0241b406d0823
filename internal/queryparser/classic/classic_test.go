package classic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, false)))
	require.NoError(t, sch.AddField("price", schema.NewNumericFieldType(64, true, false, true, true)))
	require.NoError(t, sch.AddField("created", schema.NewDatetimeFieldType(true)))
	return sch
}

func TestParseSimpleDefaultFieldTerm(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("hello")
	require.NoError(t, err)
	term := q.(*query.TermQuery)
	require.Equal(t, "title", term.FieldName)
	require.Equal(t, []byte("hello"), term.Term)
}

func TestParseFieldQualifiedAndImplicitAnd(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("title:hello world")
	require.NoError(t, err)
	and := q.(*query.AndQuery)
	require.Len(t, and.Subqueries, 2)
	require.Equal(t, "title", and.Subqueries[0].(*query.TermQuery).FieldName)
	require.Equal(t, "title", and.Subqueries[1].(*query.TermQuery).FieldName)
}

func TestParseExplicitAnd(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("hello AND world")
	require.NoError(t, err)
	and := q.(*query.AndQuery)
	require.Len(t, and.Subqueries, 2)
}

func TestParseExplicitOr(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("hello OR world")
	require.NoError(t, err)
	or := q.(*query.OrQuery)
	require.Len(t, or.Subqueries, 2)
}

func TestParsePrefixNot(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("NOT hello")
	require.NoError(t, err)
	require.IsType(t, &query.NotQuery{}, q)
}

func TestParseQuotedPhraseSingleToken(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse(`"hello"`)
	require.NoError(t, err)
	require.IsType(t, &query.TermQuery{}, q)
}

func TestParseQuotedPhraseMultiToken(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse(`"hello world"`)
	require.NoError(t, err)
	phrase := q.(*query.PhraseQuery)
	require.Equal(t, [][]byte{[]byte("hello"), []byte("world")}, phrase.Terms)
}

func TestParsePhraseWithSlop(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse(`"hello world"~3`)
	require.NoError(t, err)
	phrase := q.(*query.PhraseQuery)
	require.Equal(t, 3, phrase.Slop)
}

func TestParseTermBoost(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("hello^2.5")
	require.NoError(t, err)
	term := q.(*query.TermQuery)
	require.Equal(t, 2.5, term.BoostValue)
}

func TestParseGroupBoost(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("(hello world)^2")
	require.NoError(t, err)
	boost := q.(*query.BoostQuery)
	require.Equal(t, 2.0, boost.Factor)
	and := boost.Child.(*query.AndQuery)
	require.Len(t, and.Subqueries, 2)
}

func TestParsePrefixWildcard(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("hel*")
	require.NoError(t, err)
	prefix := q.(*query.PrefixQuery)
	require.Equal(t, []byte("hel"), prefix.Prefix)
}

func TestParseGeneralWildcard(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("he?m*x")
	require.NoError(t, err)
	require.IsType(t, &query.WildcardQuery{}, q)
}

func TestParseNumericSelfParsingExactTerm(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("price:42")
	require.NoError(t, err)
	r := q.(*query.TermRangeQuery)
	require.Equal(t, r.Start, r.End)
}

func TestParseNumericSelfParsingInclusiveRange(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("price:[10 TO 100]")
	require.NoError(t, err)
	r := q.(*query.TermRangeQuery)
	require.False(t, r.StartExcl)
	require.False(t, r.EndExcl)
}

func TestParseNumericSelfParsingExclusiveRange(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("price:{10 TO 100}")
	require.NoError(t, err)
	r := q.(*query.TermRangeQuery)
	require.True(t, r.StartExcl)
	require.True(t, r.EndExcl)
}

func TestParseNumericSelfParsingOpenEndedRange(t *testing.T) {
	p := NewQueryParser("title", testSchema(t))
	q, err := p.Parse("price:[10 TO *]")
	require.NoError(t, err)
	r := q.(*query.TermRangeQuery)
	require.NotNil(t, r.Start)
	require.Nil(t, r.End)
}
