// Package vectors implements the per-document term vectors of spec.md
// §4.5: a per-(docnum, field) mini-posting list keyed by termbytes
// instead of docid, stored as a single block using the same encoding as
// doc-list postings but with the axes swapped.
package vectors

import (
	"sort"

	"github.com/cinderfts/cinder/internal/codec/block"
	"github.com/cinderfts/cinder/internal/postings"
)

// Entry is one term's occurrence data within a single document's vector:
// the positions/chars/payloads arrays a posting would otherwise carry
// per-docid, here carried per-term.
type Entry struct {
	Term      []byte
	Weight    float32
	Positions []int
	Chars     []postings.CharSpan
	Payloads  [][]byte
}

// Writer accumulates one document's vector entries and encodes them as
// a single block, reusing the doc-list block codec with termbytes
// sorted in place of docids (vectors are typically small enough to need
// only one block; larger ones chain like any other term's posting list).
type Writer struct{}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Encode sorts entries by Term and packs them into a block chain,
// translating each Entry into a postings.Tuple keyed by a synthetic
// "docid" derived from term rank so the existing block codec's
// delta-encoded id array can be reused; termbytes themselves are stored
// in a side table alongside the block chain for lookups by term.
func (w *Writer) Encode(entries []Entry, startOffset uint64) (blocks []block.EncodedBlock, terms [][]byte) {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i].Term) < string(sorted[j].Term)
	})

	tuples := make([]postings.Tuple, len(sorted))
	terms = make([][]byte, len(sorted))
	for i, e := range sorted {
		tuples[i] = postings.Tuple{
			DocID:     uint64(i),
			Weight:    e.Weight,
			Length:    len(e.Positions),
			Positions: e.Positions,
			Chars:     e.Chars,
			Payloads:  e.Payloads,
		}
		terms[i] = e.Term
	}
	return block.EncodeTerm(tuples, startOffset), terms
}

// Reader gives access to one document's vector: term lookup by rank
// (the position in the sorted terms side table) backed by a block.Reader
// over the encoded chain.
type Reader struct {
	terms  [][]byte
	reader *block.Reader
}

// NewReader opens a vector Reader over a previously encoded chain.
func NewReader(src block.BlockSource, startOffset uint64, terms [][]byte) (*Reader, error) {
	r, err := block.NewReader(src, startOffset)
	if err != nil {
		return nil, err
	}
	return &Reader{terms: terms, reader: r}, nil
}

// Term returns the term at the current rank.
func (r *Reader) Term() []byte {
	return r.terms[r.reader.ID()]
}

// Weight returns the current term's weight within the document.
func (r *Reader) Weight() float32 { return r.reader.Weight() }

// Positions returns the current term's positions within the document.
func (r *Reader) Positions() []int { return r.reader.Positions() }

// Next advances to the next term in sorted order.
func (r *Reader) Next() (bool, error) { return r.reader.Next() }

// IsActive reports whether the reader is positioned on a valid term.
func (r *Reader) IsActive() bool { return r.reader.IsActive() }

// Seek finds the given term via the sorted side table and skips the
// block chain to its rank.
func (r *Reader) Seek(term []byte) (bool, error) {
	rank := sort.Search(len(r.terms), func(i int) bool {
		return string(r.terms[i]) >= string(term)
	})
	if rank >= len(r.terms) || string(r.terms[rank]) != string(term) {
		return false, nil
	}
	return r.reader.SkipTo(uint64(rank))
}
