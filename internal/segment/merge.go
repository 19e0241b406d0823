package segment

import (
	"github.com/cinderfts/cinder/internal/codec/block"
	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/codec/vectors"
	"github.com/cinderfts/cinder/internal/postings"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/storage"
	"github.com/cinderfts/cinder/pkg/options"
)

// Merge implements spec.md §4.11's merge conservation property (§8
// invariant 7): it builds one new segment out of inputs whose multiset
// of live field values equals the union of the inputs' live field
// values, dropping whatever each input's deletion bitmap already marks.
// It never re-runs the analyzer — every per-document artifact (stored
// value map, length byte, column value, vector entries, posting
// feature arrays) is copied verbatim from whichever input segment
// produced it, only the docnum is renumbered.
//
// Grounded on original_source/src/whoosh/writing/segmentlist.py's merge
// integration (segments disappear and are replaced by one new segment)
// and spec.md §4.2-§4.5's codec contracts; original_source carries no
// surviving merge-implementation file for the block-structured codec
// this spec targets (only segmentlist.py's bookkeeping survived the
// pack's filtering), so the per-store replay sequence below is built
// directly from what segment.Writer's own AddDocument/indexField/Finish
// already do for a single non-merged segment.
func Merge(store, tmp storage.Storage, sch *schema.Schema, opts *options.Options, segs []*Segment) (Info, error) {
	remap := make([][]int64, len(segs))
	var total uint64
	for i, seg := range segs {
		n := seg.DocCount()
		m := make([]int64, n)
		for d := uint64(0); d < n; d++ {
			if seg.IsDeleted(d) {
				m[d] = -1
				continue
			}
			m[d] = int64(total)
			total++
		}
		remap[i] = m
	}

	w, err := NewWriter(store, tmp, sch, opts)
	if err != nil {
		return Info{}, err
	}

	if err := mergeDocStores(w, sch, segs, remap); err != nil {
		return Info{}, err
	}
	w.SetDocCount(total)

	if err := mergePostings(w, sch, segs, remap); err != nil {
		return Info{}, err
	}

	return w.Finish()
}

// mergeDocStores replays every live document's stored-field map,
// per-field length byte, and column value, in new-docnum order. This is
// the doc-major half of the merge: one pass per input segment over its
// dense docnum space, independent of which terms a document contains.
func mergeDocStores(w *Writer, sch *schema.Schema, segs []*Segment, remap [][]int64) error {
	fieldNames := sch.FieldNames()
	for i, seg := range segs {
		m := remap[i]
		stored := seg.StoredFields()
		for d := uint64(0); d < seg.DocCount(); d++ {
			if m[d] < 0 {
				continue
			}
			w.ReserveDoc()

			var fields map[string]any
			if stored != nil {
				var err error
				fields, err = stored.Get(d)
				if err != nil {
					return err
				}
			}
			if err := w.AppendStoredFields(fields); err != nil {
				return err
			}

			for _, name := range fieldNames {
				ft, _ := sch.Field(name)
				if ft.Scored {
					length := 0
					if fl := seg.FieldLengths(name); fl != nil {
						length = fl.Get(d)
					}
					w.AppendFieldLength(name, length)
				}
				if ft.Column == nil {
					continue
				}
				col := seg.Column(name)
				if col == nil {
					continue
				}
				value, ok := col.Get(d)
				if !ok {
					continue
				}
				switch ft.Column.Type {
				case schema.ColumnBitset, schema.ColumnRoaring:
					if present, _ := value.(bool); present {
						if err := w.AppendColumnValue(name, uint64(m[d]), true); err != nil {
							return err
						}
					}
				default:
					if err := w.AppendColumnValue(name, uint64(m[d]), value); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// mergePostings replays every live posting, field by field, segment by
// segment: a full forward scan of each field's entire term dictionary
// and block chain, renumbering docids via remap and dropping postings
// whose old docid was deleted. The renumbered tuples are spilled into
// w's own sorting spiller, so w.Finish's existing sort of the spilled tuples
// groups postings by (field, term) across every input segment exactly
// as it would for a single large segment — merging never needs its own
// separate term-dictionary merge step.
func mergePostings(w *Writer, sch *schema.Schema, segs []*Segment, remap [][]int64) error {
	for _, name := range sch.FieldNames() {
		ft, _ := sch.Field(name)
		trackVectors := ft.IndexedForm.Positions
		var vecAccum map[uint64][]vectors.Entry
		if trackVectors {
			vecAccum = make(map[uint64][]vectors.Entry)
		}

		for i, seg := range segs {
			td := seg.TermDictionary(name)
			if td == nil {
				continue
			}
			m := remap[i]
			if !td.Seek(termdict.Key{Term: []byte{}}) {
				continue
			}
			for {
				term := append([]byte(nil), td.Key().Term...)
				info := td.Value()

				br, err := block.NewReader(seg.PostingSource(), info.FirstBlockOffset)
				if err != nil {
					return err
				}
				for br.IsActive() {
					old := br.ID()
					if newID := m[old]; newID >= 0 {
						tuple := postings.Tuple{
							DocID:  uint64(newID),
							Field:  name,
							Term:   term,
							Length: br.Length(),
							Weight: br.Weight(),
						}
						if ft.IndexedForm.Positions {
							tuple.Positions = br.Positions()
						}
						if ft.IndexedForm.Chars {
							tuple.Chars = br.Chars()
						}
						if ft.IndexedForm.Payloads {
							tuple.Payloads = br.Payloads()
						}
						if err := w.SpillTuple(tuple); err != nil {
							return err
						}
						if trackVectors {
							vecAccum[uint64(newID)] = append(vecAccum[uint64(newID)], vectors.Entry{
								Term:      term,
								Weight:    tuple.Weight,
								Positions: tuple.Positions,
								Chars:     tuple.Chars,
								Payloads:  tuple.Payloads,
							})
						}
					}
					ok, err := br.Next()
					if err != nil {
						return err
					}
					if !ok {
						break
					}
				}

				if !td.Next() {
					break
				}
			}
		}

		if trackVectors {
			for docnum, entries := range vecAccum {
				w.AppendVectorEntries(name, docnum, entries)
			}
		}
	}
	return nil
}
