// Package searcher's Searcher composes every currently-live segment into
// one virtual docid space and runs a query across all of them into a
// single top-K Collector, per spec.md §5's "the Searcher presents a
// virtual order by concatenating segment docid spaces with per-segment
// offsets" and §2's SubSearchers/Matchers/Collector pipeline. Grounded in
// original_source/src/whoosh/searching.py's Searcher, which does the
// same fan-out over per-segment "subsearchers."
package searcher

import (
	"context"

	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/scoring"
	"github.com/cinderfts/cinder/internal/segment"
	"github.com/cinderfts/cinder/internal/storage"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
)

// subSearcher pairs one open segment with the offset its docids occupy
// in the Searcher's virtual docid space.
type subSearcher struct {
	seg    *segment.Segment
	offset uint64
	stats  *SegmentStats
}

// Searcher is a read-only view over a fixed set of segments, matching
// spec.md §5's "immutable references to segment files... read-only after
// construction" — a later commit never mutates an already-open Searcher;
// callers reopen against the new TOC generation instead.
type Searcher struct {
	schema     *schema.Schema
	weighting  scoring.Weighting
	subs       []*subSearcher
	totalStats *multiStats
}

// Open opens every segment named by infos under store and builds a
// Searcher ready to run queries, per spec.md §2's "QueryParser -> Query
// tree -> Searcher -> SubSearchers."
func Open(store storage.Storage, sch *schema.Schema, infos []segment.Info, weighting scoring.Weighting) (*Searcher, error) {
	subs := make([]*subSearcher, 0, len(infos))
	var offset uint64
	for _, info := range infos {
		seg, err := segment.Open(store, sch, info)
		if err != nil {
			for _, s := range subs {
				s.seg.Close()
			}
			return nil, err
		}
		subs = append(subs, &subSearcher{seg: seg, offset: offset, stats: NewSegmentStats(seg)})
		offset += info.DocCount
	}

	all := make([]scoring.CollectionStats, len(subs))
	for i, s := range subs {
		all[i] = s.stats
	}

	return &Searcher{
		schema:     sch,
		weighting:  weighting,
		subs:       subs,
		totalStats: newMultiStats(all),
	}, nil
}

// Close releases every open segment.
func (s *Searcher) Close() error {
	var firstErr error
	for _, sub := range s.subs {
		if err := sub.seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DocCount returns the total number of live documents across every
// segment this Searcher holds open.
func (s *Searcher) DocCount() uint64 { return s.totalStats.DocCount() }

// Search runs q across every segment, collecting the top limit hits in
// the Searcher's virtual docid space. If ctx is cancelled or its
// deadline passes before every segment has been scanned, Search returns
// the partial Results (Truncated=true) together with a TimeLimitError,
// per spec.md §5's "raises TimeLimit with the partial results attached."
func (s *Searcher) Search(ctx context.Context, q query.Query, limit int) (*Results, error) {
	collector := NewCollector(limit)

	for _, sub := range s.subs {
		if err := checkDeadline(ctx); err != nil {
			return collector.Results(true), err
		}

		qctx := &query.Context{
			Weighting: s.weighting,
			Stats:     s.totalStats,
			Source:    NewSegmentSource(sub.seg),
			DocCount:  sub.seg.DocCount(),
			IsDeleted: sub.seg.IsDeleted,
			Scoring:   true,
		}

		simplified, err := q.Simplify(qctx.Source)
		if err != nil {
			return collector.Results(true), err
		}
		simplified = simplified.Normalize()

		m, err := simplified.Matcher(qctx)
		if err != nil {
			return collector.Results(true), err
		}

		for m.IsActive() {
			if err := checkDeadline(ctx); err != nil {
				return collector.Results(true), err
			}
			score := m.Score()
			if s.weighting.UseFinal() {
				score, err = s.weighting.Final(m.ID(), score)
				if err != nil {
					return collector.Results(true), err
				}
			}
			collector.Collect(sub.offset+m.ID(), score)
			if _, err := m.Next(); err != nil {
				return collector.Results(true), err
			}
		}
	}

	return collector.Results(false), nil
}

// StoredFields returns docID's stored field values, translating the
// virtual docid back into its owning segment and local docnum.
func (s *Searcher) StoredFields(docID uint64) (map[string]any, error) {
	sub, local, err := s.locate(docID)
	if err != nil {
		return nil, err
	}
	sf := sub.seg.StoredFields()
	if sf == nil {
		return map[string]any{}, nil
	}
	return sf.Get(local)
}

func (s *Searcher) locate(docID uint64) (*subSearcher, uint64, error) {
	for i, sub := range s.subs {
		var next uint64
		if i+1 < len(s.subs) {
			next = s.subs[i+1].offset
		} else {
			next = ^uint64(0)
		}
		if docID >= sub.offset && docID < next {
			return sub, docID - sub.offset, nil
		}
	}
	return nil, 0, cerrors.NewSchemaError("docid", "virtual docid out of range")
}
