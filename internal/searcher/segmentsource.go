// Package searcher implements spec.md §5's read path over a set of open
// segments: turning a query.Query into matchers against one segment's
// postings (SegmentSource/SegmentStats), aggregating statistics across
// every segment in the index (multiStats), and collecting top-K scored
// results across all of them (Collector, Searcher). Grounded in
// original_source/src/whoosh/searching.py's Searcher (per-segment
// subsearchers feeding one top-level collector) and matching.py's
// FilterMatcher (the deleted-document skip this package's
// deletedFilterMatcher reimplements as a thin matcher.Matcher wrapper).
package searcher

import (
	"bytes"
	"sync"

	"github.com/cinderfts/cinder/internal/codec/block"
	"github.com/cinderfts/cinder/internal/codec/termdict"
	"github.com/cinderfts/cinder/internal/matcher"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/scoring"
	"github.com/cinderfts/cinder/internal/segment"
)

// SegmentStats implements scoring.CollectionStats over one segment,
// the statistics a Weighting needs to build a Scorer restricted to this
// segment's postings. FieldLengthSum is the only one expensive enough
// to cache: it has no stored aggregate and must walk every live
// document's length once.
type SegmentStats struct {
	seg *segment.Segment

	mu         sync.Mutex
	lengthSums map[string]uint64
}

// NewSegmentStats wraps seg for statistics lookups.
func NewSegmentStats(seg *segment.Segment) *SegmentStats {
	return &SegmentStats{seg: seg, lengthSums: make(map[string]uint64)}
}

func (s *SegmentStats) DocCount() uint64 { return s.seg.LiveCount() }

func (s *SegmentStats) DocFrequency(field string, term []byte) (uint64, error) {
	info, ok, err := s.seek(field, term)
	if err != nil || !ok {
		return 0, err
	}
	return info.DocFreq, nil
}

func (s *SegmentStats) TotalTermFrequency(field string, term []byte) (uint64, error) {
	info, ok, err := s.seek(field, term)
	if err != nil || !ok {
		return 0, err
	}
	return info.TotalTermFreq, nil
}

func (s *SegmentStats) seek(field string, term []byte) (termdict.TermInfo, bool, error) {
	td := s.seg.TermDictionary(field)
	if td == nil {
		return termdict.TermInfo{}, false, nil
	}
	if !td.Seek(termdict.Key{Term: term}) {
		return termdict.TermInfo{}, false, nil
	}
	if !bytes.Equal(td.Key().Term, term) {
		return termdict.TermInfo{}, false, nil
	}
	return td.Value(), true, nil
}

func (s *SegmentStats) FieldLengthSum(field string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum, ok := s.lengthSums[field]; ok {
		return sum, nil
	}

	fl := s.seg.FieldLengths(field)
	var sum uint64
	if fl != nil {
		for docnum := uint64(0); docnum < s.seg.DocCount(); docnum++ {
			if s.seg.IsDeleted(docnum) {
				continue
			}
			sum += uint64(fl.Get(docnum))
		}
	}
	s.lengthSums[field] = sum
	return sum, nil
}

// SegmentSource implements query.TermSource over one segment's term
// dictionary and posting blocks, the leaf-matcher-building half of
// spec.md §4.8's "wildcard/range -> OR of dictionary terms" contract.
type SegmentSource struct {
	seg *segment.Segment
}

// NewSegmentSource wraps seg as a query.TermSource.
func NewSegmentSource(seg *segment.Segment) *SegmentSource {
	return &SegmentSource{seg: seg}
}

func (s *SegmentSource) TermMatcher(ctx *query.Context, field string, term []byte, qf int) (matcher.Matcher, error) {
	td := s.seg.TermDictionary(field)
	if td == nil {
		return matcher.Null, nil
	}
	if !td.Seek(termdict.Key{Term: term}) {
		return matcher.Null, nil
	}
	if !bytes.Equal(td.Key().Term, term) {
		return matcher.Null, nil
	}
	info := td.Value()

	reader, err := block.NewReader(s.seg.PostingSource(), info.FirstBlockOffset)
	if err != nil {
		return nil, err
	}
	scorer, err := ctx.Weighting.Scorer(ctx.Stats, field, term, qf)
	if err != nil {
		return nil, err
	}

	m := matcher.NewTermMatcher(reader, scorer, info.MaxWeight, int(info.MinLength), int(info.MaxLength))
	return newDeletedFilter(m, ctx.IsDeleted), nil
}

func (s *SegmentSource) ExpandPrefix(field string, prefix []byte) ([][]byte, error) {
	td := s.seg.TermDictionary(field)
	if td == nil {
		return nil, nil
	}
	keys := td.ExpandPrefix(0, prefix)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = k.Term
	}
	return out, nil
}

func (s *SegmentSource) ExpandRange(field string, start, end []byte, startExcl, endExcl bool) ([][]byte, error) {
	td := s.seg.TermDictionary(field)
	if td == nil {
		return nil, nil
	}

	seekKey := termdict.Key{Term: start}
	if !td.Seek(seekKey) {
		return nil, nil
	}

	var out [][]byte
	for {
		key := td.Key()
		if startExcl && start != nil && bytes.Equal(key.Term, start) {
			if !td.Next() {
				break
			}
			continue
		}
		if end != nil {
			cmp := bytes.Compare(key.Term, end)
			if cmp > 0 || (cmp == 0 && endExcl) {
				break
			}
		}
		out = append(out, key.Term)
		if !td.Next() {
			break
		}
	}
	return out, nil
}
