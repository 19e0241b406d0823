package analysis

import (
	"strings"
	"unicode"
)

// WhitespaceAnalyzer is a minimal built-in Analyzer used by tests and
// package examples to exercise the rest of the engine end to end. It only
// splits on whitespace and lowercases; stemming, stop-word removal, and
// other concrete-analyzer concerns are explicitly out of scope for this
// module; callers wanting those plug in their own Analyzer.
type WhitespaceAnalyzer struct{}

// Name identifies this analyzer in a schema's serialized form.
func (WhitespaceAnalyzer) Name() string { return "whitespace" }

func (WhitespaceAnalyzer) Analyze(text string, mode Mode) TokenStream {
	var tokens []Token
	pos := 0
	start := -1
	runes := []rune(text)

	flush := func(end int) {
		if start < 0 {
			return
		}
		word := strings.ToLower(string(runes[start:end]))
		tokens = append(tokens, Token{
			Text:      word,
			Position:  pos,
			StartChar: start,
			EndChar:   end,
		})
		pos++
		start = -1
	}

	for i, r := range runes {
		if unicode.IsSpace(r) {
			flush(i)
		} else if start < 0 {
			start = i
		}
	}
	flush(len(runes))

	return NewSliceTokenStream(tokens)
}
