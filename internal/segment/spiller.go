package segment

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/postings"
	"github.com/cinderfts/cinder/internal/storage"
)

// spillTuple is the gob wire form of a postings.Tuple, kept distinct from
// postings.Tuple itself so the spill format doesn't silently change shape
// if that struct ever grows fields unrelated to what gets spilled.
type spillTuple struct {
	DocID     uint64
	Field     string
	Term      []byte
	Length    int
	Weight    float32
	Positions []int
	Chars     []postings.CharSpan
	Payloads  [][]byte
}

// spiller accumulates posting tuples to a temporary storage file during
// AddDocument calls, per spec.md §4.11 step 6 ("emit posting tuples to a
// sorting spiller"), so they are not held in memory while documents
// stream in; on finish_segment, FinishGrouped reads every tuple back into
// memory and sorts them in one pass.
type spiller struct {
	tmp  storage.Storage
	out  storage.OutputFile
	name string
	n    int
}

func newSpiller(tmp storage.Storage) (*spiller, error) {
	name := "spill"
	out, err := tmp.CreateFile(name)
	if err != nil {
		return nil, err
	}
	return &spiller{tmp: tmp, out: out, name: name}, nil
}

// Add appends one posting tuple to the spill file, length-prefixed so the
// reader can stream records back without a separate index.
func (s *spiller) Add(t postings.Tuple) error {
	var buf bytes.Buffer
	wire := spillTuple{
		DocID:     t.DocID,
		Field:     t.Field,
		Term:      t.Term,
		Length:    t.Length,
		Weight:    t.Weight,
		Positions: t.Positions,
		Chars:     t.Chars,
		Payloads:  t.Payloads,
	}
	if err := gob.NewEncoder(&buf).Encode(&wire); err != nil {
		return err
	}
	lenBuf := make([]byte, 4)
	n := buf.Len()
	lenBuf[0] = byte(n >> 24)
	lenBuf[1] = byte(n >> 16)
	lenBuf[2] = byte(n >> 8)
	lenBuf[3] = byte(n)
	if _, err := s.out.Write(lenBuf); err != nil {
		return err
	}
	if _, err := s.out.Write(buf.Bytes()); err != nil {
		return err
	}
	s.n++
	return nil
}

// sortedKey groups tuples by (field, termbytes) per spec.md §4.11's
// finish_segment step, then by docid within a group.
type sortedKey struct {
	field string
	term  string
}

// FinishGrouped closes the spill file, reads every tuple back, sorts by
// (field, term, docid), and returns them grouped into runs of identical
// (field, termbytes), the shape finish_segment needs to emit one
// term-dictionary entry per run.
func (s *spiller) FinishGrouped() ([][]postings.Tuple, error) {
	if err := s.out.Close(); err != nil {
		return nil, err
	}
	if s.n == 0 {
		return nil, nil
	}

	in, err := s.tmp.OpenFile(s.name)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	buf := make([]byte, in.Len())
	if len(buf) > 0 {
		if _, err := in.ReadAt(buf, 0); err != nil {
			return nil, err
		}
	}

	tuples := make([]postings.Tuple, 0, s.n)
	pos := 0
	for pos < len(buf) {
		n := int(buf[pos])<<24 | int(buf[pos+1])<<16 | int(buf[pos+2])<<8 | int(buf[pos+3])
		pos += 4
		var wire spillTuple
		dec := gob.NewDecoder(bytes.NewReader(buf[pos : pos+n]))
		if err := dec.Decode(&wire); err != nil {
			return nil, err
		}
		pos += n
		tuples = append(tuples, postings.Tuple{
			DocID:     wire.DocID,
			Field:     wire.Field,
			Term:      wire.Term,
			Length:    wire.Length,
			Weight:    wire.Weight,
			Positions: wire.Positions,
			Chars:     wire.Chars,
			Payloads:  wire.Payloads,
		})
	}

	sort.SliceStable(tuples, func(i, j int) bool {
		a, b := tuples[i], tuples[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		c := termdict.Compare(termdict.Key{Term: a.Term}, termdict.Key{Term: b.Term})
		if c != 0 {
			return c < 0
		}
		return a.DocID < b.DocID
	})

	var groups [][]postings.Tuple
	for i := 0; i < len(tuples); {
		j := i + 1
		for j < len(tuples) && tuples[j].Field == tuples[i].Field && bytes.Equal(tuples[j].Term, tuples[i].Term) {
			j++
		}
		groups = append(groups, tuples[i:j])
		i = j
	}
	return groups, nil
}
