package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitespaceAnalyzerSplitsAndLowercases(t *testing.T) {
	stream := WhitespaceAnalyzer{}.Analyze("Alfa Bravo  charlie", ModeIndex)

	var got []Token
	for stream.Next() {
		got = append(got, stream.Token())
	}

	assert.Len(t, got, 3)
	assert.Equal(t, "alfa", got[0].Text)
	assert.Equal(t, "bravo", got[1].Text)
	assert.Equal(t, "charlie", got[2].Text)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, 1, got[1].Position)
	assert.Equal(t, 2, got[2].Position)
}

func TestWhitespaceAnalyzerEmptyInput(t *testing.T) {
	stream := WhitespaceAnalyzer{}.Analyze("   ", ModeIndex)
	assert.False(t, stream.Next())
}
