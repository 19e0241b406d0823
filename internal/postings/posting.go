// Package postings defines the in-memory posting tuple shared by the
// writer's sorting spiller, the block codec, and the matcher tree.
package postings

// Tuple is the 7-tuple spec.md §3 describes: (docid, termbytes, length,
// weight, positions, chars, payloads), grounded in
// original_source/src/whoosh/postings/ptuples.py. Kept as a plain struct
// rather than a raw tuple since Go has no anonymous-tuple type.
type Tuple struct {
	DocID     uint64
	Field     string
	Term      []byte
	Length    int
	Weight    float32
	Positions []int
	Chars     []CharSpan
	Payloads  [][]byte
}

// CharSpan is a token's [start, end) character offsets within its field
// value, recorded only when the field's IndexedForm.Chars is set.
type CharSpan struct {
	Start int
	End   int
}

// Update returns a copy of t with DocID replaced, mirroring whoosh's
// update_post copy-with-replacement semantics used while renumbering
// docids across segments during a merge.
func (t Tuple) Update(newDocID uint64) Tuple {
	t.DocID = newDocID
	return t
}

// HasPositions reports whether the tuple carries position information.
func (t Tuple) HasPositions() bool { return t.Positions != nil }

// HasChars reports whether the tuple carries character-offset information.
func (t Tuple) HasChars() bool { return t.Chars != nil }

// HasPayloads reports whether the tuple carries payload information.
func (t Tuple) HasPayloads() bool { return t.Payloads != nil }
