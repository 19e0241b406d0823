// Package analysis defines the token-producing contract a FieldType's
// analyzer satisfies. Concrete analyzers (tokenizers, stemmers, stop-word
// filters) are out of scope per spec.md's Non-goals; this package only
// fixes the interface SegmentWriter and the query parser's term queries
// build against, translating the original's generator-based token stream
// (spec.md §9's "Coroutine control flow" design note) into an explicit
// iterator struct with visible state.
package analysis

// Token is one emitted unit of analysis. Position, StartChar/EndChar, and
// Payload are populated only when the consuming FieldType's indexed form
// requests the corresponding feature array.
type Token struct {
	Text      string
	Position  int
	StartChar int
	EndChar   int
	Payload   []byte
}

// TokenStream is an explicit-state iterator over a field value's tokens,
// replacing the Python source's generator-based analyzer chain.
type TokenStream interface {
	// Next advances to the next token, returning false once exhausted.
	Next() bool
	// Token returns the current token. Valid only after Next returns true.
	Token() Token
}

// Mode selects which features an Analyzer is asked to populate; index mode
// needs positions/chars/payloads only if the field stores them, while query
// mode (e.g. expanding a fuzzy query) never needs position/char tracking.
type Mode int

const (
	ModeIndex Mode = iota
	ModeQuery
)

// Analyzer turns field text into a TokenStream.
type Analyzer interface {
	Analyze(text string, mode Mode) TokenStream
}

// sliceTokenStream is a TokenStream over a pre-computed slice of Tokens,
// the common case for small built-in analyzers.
type sliceTokenStream struct {
	tokens []Token
	pos    int
}

// NewSliceTokenStream wraps a pre-computed token slice as a TokenStream.
func NewSliceTokenStream(tokens []Token) TokenStream {
	return &sliceTokenStream{tokens: tokens, pos: -1}
}

func (s *sliceTokenStream) Next() bool {
	s.pos++
	return s.pos < len(s.tokens)
}

func (s *sliceTokenStream) Token() Token {
	return s.tokens[s.pos]
}
