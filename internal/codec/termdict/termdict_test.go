package termdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ti(docFreq uint64) TermInfo {
	return TermInfo{DocFreq: docFreq, TotalTermFreq: docFreq, MinLength: 1, MaxLength: 10, MaxWeight: 1.5, FirstBlockOffset: 42}
}

func TestSeekAndIterate(t *testing.T) {
	w := NewWriter()
	terms := []string{"apple", "banana", "cherry", "date", "fig", "grape"}
	for i, term := range terms {
		w.Add(Key{Field: 0, Term: []byte(term)}, ti(uint64(i+1)))
	}
	regionBytes, index := w.Build()

	r := NewReader(regionBytes, index)
	ok := r.Seek(Key{Field: 0, Term: []byte("cherry")})
	require.True(t, ok)
	assert.Equal(t, "cherry", string(r.Key().Term))
	assert.Equal(t, uint64(3), r.Value().DocFreq)

	ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "date", string(r.Key().Term))
}

func TestSeekMissingKeyLandsOnNext(t *testing.T) {
	w := NewWriter()
	w.Add(Key{Field: 0, Term: []byte("apple")}, ti(1))
	w.Add(Key{Field: 0, Term: []byte("cherry")}, ti(2))
	regionBytes, index := w.Build()

	r := NewReader(regionBytes, index)
	ok := r.Seek(Key{Field: 0, Term: []byte("banana")})
	require.True(t, ok)
	assert.Equal(t, "cherry", string(r.Key().Term))
}

func TestSeekPastEndFails(t *testing.T) {
	w := NewWriter()
	w.Add(Key{Field: 0, Term: []byte("apple")}, ti(1))
	regionBytes, index := w.Build()

	r := NewReader(regionBytes, index)
	assert.False(t, r.Seek(Key{Field: 0, Term: []byte("zebra")}))
}

func TestExpandPrefix(t *testing.T) {
	w := NewWriter()
	for _, term := range []string{"car", "cart", "cat", "dog"} {
		w.Add(Key{Field: 0, Term: []byte(term)}, ti(1))
	}
	regionBytes, index := w.Build()

	r := NewReader(regionBytes, index)
	keys := r.ExpandPrefix(0, []byte("ca"))
	var got []string
	for _, k := range keys {
		got = append(got, string(k.Term))
	}
	assert.Equal(t, []string{"car", "cart", "cat"}, got)
}

func TestBuildSpansMultipleRegionsWhenLarge(t *testing.T) {
	w := NewWriter()
	for i := 0; i < 5000; i++ {
		term := make([]byte, 20)
		for j := range term {
			term[j] = byte('a' + (i+j)%26)
		}
		w.Add(Key{Field: 0, Term: append(term, byte(i>>8), byte(i))}, ti(1))
	}
	_, index := w.Build()
	assert.Greater(t, len(index), 1)
}
