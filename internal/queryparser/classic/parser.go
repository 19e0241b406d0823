// Package classic implements the default "classic" query syntax spec.md
// §4.9 describes: `field:value`, `"phrase"`, `a AND b`, `a OR b`, `NOT a`,
// `(a b)`, `a^2.0`, `[x TO y]`, `prefix*`, `wild*card?`. It is grounded on
// original_source/src/whoosh/qparser's QueryParser (default2.py) and
// SyntaxNode hierarchy (syntax2.py), though collapsed from their
// pluggable tagger/filter-priority-chain architecture (whose concrete
// plugin implementations, plugins2.py, were filtered out of the pack)
// into a single lexer plus a direct recursive-descent grammar producing
// this package's own small node tree, then converted to an
// internal/query.Query tree in one pass.
package classic

import (
	"fmt"
	"strings"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
)

// SelfParsingField is implemented by a field type whose raw query-string
// substring it parses itself instead of having the tokenizer/analyzer
// chain process it, per spec.md §4.9's "self_parsing" rule for numeric
// ranges and datetimes.
type SelfParsingField interface {
	ParseTerm(field, text string, boost float64) (query.Query, error)
	ParseRange(field string, start, end *string, startExcl, endExcl bool, boost float64) (query.Query, error)
}

// QueryParser parses classic-syntax query strings against a field/schema,
// the Go analogue of default2.py's QueryParser object.
type QueryParser struct {
	DefaultField string
	Schema       *schema.Schema
	// DefaultAnalyzer analyzes a query term for fields without their own
	// Analyzer (or when Schema is nil).
	DefaultAnalyzer analysis.Analyzer
	// SelfParsers maps a field name with FieldType.SelfParsing set to the
	// handler its raw text substring is handed to. NewQueryParser
	// populates this automatically from Schema for Numeric/Datetime
	// fields; callers may add or override entries before calling Parse.
	SelfParsers map[string]SelfParsingField
}

// NewQueryParser builds a QueryParser defaulting unfielded clauses to
// defaultField, auto-registering a NumericSelfParser/DatetimeSelfParser
// for every self-parsing field sch defines.
func NewQueryParser(defaultField string, sch *schema.Schema) *QueryParser {
	p := &QueryParser{
		DefaultField:    defaultField,
		Schema:          sch,
		DefaultAnalyzer: analysis.WhitespaceAnalyzer{},
		SelfParsers:     map[string]SelfParsingField{},
	}
	if sch != nil {
		for _, name := range sch.FieldNames() {
			ft, _ := sch.Field(name)
			if !ft.SelfParsing {
				continue
			}
			switch ft.Kind {
			case schema.KindNumeric:
				p.SelfParsers[name] = NumericSelfParser{Field: ft}
			case schema.KindDatetime:
				p.SelfParsers[name] = DatetimeSelfParser{}
			}
		}
	}
	return p
}

// Parse tokenizes and parses text into a normalized query.Query, the Go
// analogue of default2.py's QueryParser.parse (tag -> filterize -> query
// -> normalize; the filter-plugin stage is folded directly into this
// package's grammar instead of running as a separate pass).
func (p *QueryParser) Parse(text string) (query.Query, error) {
	ps := &parseState{lex: newLexer(text)}
	ps.advance()
	n, err := ps.parseOr()
	if err != nil {
		return nil, err
	}
	if ps.tok.kind != tokEOF {
		return nil, fmt.Errorf("classic: unexpected trailing input near %q", ps.tok.text)
	}
	pc := &parseContext{
		defaultField: p.DefaultField,
		schema:       p.Schema,
		analyzer:     p.DefaultAnalyzer,
		selfParsers:  p.SelfParsers,
	}
	q, err := n.queryNode(pc)
	if err != nil {
		return nil, err
	}
	return q.Normalize(), nil
}

// parseContext carries schema/analyzer/self-parser access from
// QueryParser through to node.queryNode, the Go analogue of the "parser"
// argument syntax2.py's SyntaxNode.query(parser) methods take.
type parseContext struct {
	defaultField string
	schema       *schema.Schema
	analyzer     analysis.Analyzer
	selfParsers  map[string]SelfParsingField
}

func (pc *parseContext) selfParser(field string) (SelfParsingField, bool) {
	if pc.schema == nil {
		return nil, false
	}
	ft, ok := pc.schema.Field(field)
	if !ok || !ft.SelfParsing {
		return nil, false
	}
	sp, ok := pc.selfParsers[field]
	return sp, ok
}

func (pc *parseContext) fieldAnalyzer(field string) analysis.Analyzer {
	if pc.schema != nil {
		if ft, ok := pc.schema.Field(field); ok && ft.Analyzer != nil {
			return ft.Analyzer
		}
	}
	return pc.analyzer
}

// analyzeTerms runs field's analyzer over text in query mode, per
// default2.py's term_query "ask the field to process the text into a
// list of tokenized strings" step.
func (pc *parseContext) analyzeTerms(field, text string) []string {
	an := pc.fieldAnalyzer(field)
	if an == nil {
		return []string{text}
	}
	stream := an.Analyze(text, analysis.ModeQuery)
	var out []string
	for stream.Next() {
		out = append(out, stream.Token().Text)
	}
	return out
}

// termQuery builds the query for a single unquoted word: a self-parser's
// result if field has one, else field's analyzed terms folded into an
// AndQuery when the analyzer yields more than one token. default2.py
// instead consults a per-field multitoken_query attribute to decide
// whether to AND, OR, or phrase-join; this package always ANDs, since
// schema.FieldType carries no equivalent setting.
func (pc *parseContext) termQuery(field, text string, boost float64) (query.Query, error) {
	if sp, ok := pc.selfParser(field); ok {
		return sp.ParseTerm(field, text, boost)
	}
	terms := pc.analyzeTerms(field, text)
	if len(terms) == 0 {
		return query.Null, nil
	}
	if len(terms) == 1 {
		q := query.NewTerm(field, []byte(terms[0]))
		q.BoostValue = boost
		return q, nil
	}
	children := make([]query.Query, len(terms))
	for i, t := range terms {
		children[i] = query.NewTerm(field, []byte(t))
	}
	and := query.NewAnd(children...)
	if boost != 1 {
		return query.NewBoost(and, boost), nil
	}
	return and, nil
}

// parseState is the recursive-descent cursor over the token stream.
type parseState struct {
	lex *lexer
	tok token
}

func (ps *parseState) advance() { ps.tok = ps.lex.next() }

// parseOr := parseAnd (OR parseAnd)*
func (ps *parseState) parseOr() (node, error) {
	first, err := ps.parseAnd()
	if err != nil {
		return nil, err
	}
	nodes := []node{first}
	for ps.tok.kind == tokOr {
		ps.advance()
		n, err := ps.parseAnd()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &orGroup{nodes: nodes, boost: 1}, nil
}

// parseAnd := parseNot (AND? parseNot)* — adjacent clauses without an
// explicit operator are implicitly ANDed, classic syntax's default group.
func (ps *parseState) parseAnd() (node, error) {
	first, err := ps.parseNot()
	if err != nil {
		return nil, err
	}
	nodes := []node{first}
	for ps.startsPrimary() || ps.tok.kind == tokAnd {
		if ps.tok.kind == tokAnd {
			ps.advance()
		}
		n, err := ps.parseNot()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &andGroup{nodes: nodes, boost: 1}, nil
}

func (ps *parseState) startsPrimary() bool {
	switch ps.tok.kind {
	case tokWord, tokQuoted, tokFieldPrefix, tokLParen, tokLBracket, tokLBrace, tokNot:
		return true
	default:
		return false
	}
}

func (ps *parseState) parseNot() (node, error) {
	if ps.tok.kind == tokNot {
		ps.advance()
		child, err := ps.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{child: child}, nil
	}
	return ps.parsePrimary()
}

func (ps *parseState) parsePrimary() (node, error) {
	switch ps.tok.kind {
	case tokFieldPrefix:
		field := ps.tok.field
		ps.advance()
		inner, err := ps.parsePrimary()
		if err != nil {
			return nil, err
		}
		return withField(inner, field), nil
	case tokLParen:
		ps.advance()
		n, err := ps.parseOr()
		if err != nil {
			return nil, err
		}
		if ps.tok.kind != tokRParen {
			return nil, fmt.Errorf("classic: expected ')'")
		}
		boost := ps.tok.boost
		if boost == 0 {
			boost = 1
		}
		ps.advance()
		return scaleBoost(n, boost), nil
	case tokLBracket, tokLBrace:
		return ps.parseRange()
	case tokQuoted:
		t := ps.tok
		ps.advance()
		return &quotedNode{field: t.field, text: t.text, slop: t.slop, boost: t.boost}, nil
	case tokWord:
		t := ps.tok
		ps.advance()
		if strings.ContainsAny(t.text, "*?") {
			return &wildNode{field: t.field, pattern: t.text, boost: t.boost}, nil
		}
		return &wordNode{field: t.field, text: t.text, boost: t.boost}, nil
	default:
		return nil, fmt.Errorf("classic: unexpected token")
	}
}

func (ps *parseState) parseRange() (node, error) {
	startExcl := ps.tok.kind == tokLBrace
	ps.advance()

	startOpen := false
	start := ""
	switch {
	case ps.tok.kind == tokWord && ps.tok.text == "*":
		startOpen = true
		ps.advance()
	case ps.tok.kind == tokWord:
		start = ps.tok.text
		ps.advance()
	default:
		return nil, fmt.Errorf("classic: expected range start")
	}

	if ps.tok.kind != tokTo {
		return nil, fmt.Errorf("classic: expected TO in range")
	}
	ps.advance()

	endOpen := false
	end := ""
	switch {
	case ps.tok.kind == tokWord && ps.tok.text == "*":
		endOpen = true
		ps.advance()
	case ps.tok.kind == tokWord:
		end = ps.tok.text
		ps.advance()
	default:
		return nil, fmt.Errorf("classic: expected range end")
	}

	if ps.tok.kind != tokRBracket && ps.tok.kind != tokRBrace {
		return nil, fmt.Errorf("classic: expected ']' or '}'")
	}
	endExcl := ps.tok.kind == tokRBrace
	boost := ps.tok.boost
	if boost == 0 {
		boost = 1
	}
	ps.advance()

	return &rangeNode{
		start: start, end: end,
		startOpen: startOpen, endOpen: endOpen,
		startExcl: startExcl, endExcl: endExcl,
		boost: boost,
	}, nil
}
