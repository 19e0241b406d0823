package searcher

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/scoring"
	"github.com/cinderfts/cinder/internal/segment"
)

// ContextFor builds the query.Context a query tree needs to build
// matchers against seg alone, scored by weighting and stats (typically
// NewSegmentStats(seg), but a caller running the same weighting/stats
// across every segment in a merge may share one).
func ContextFor(seg *segment.Segment, weighting scoring.Weighting, stats scoring.CollectionStats, scoringEnabled bool) *query.Context {
	return &query.Context{
		Weighting: weighting,
		Stats:     stats,
		Source:    NewSegmentSource(seg),
		DocCount:  seg.DocCount(),
		IsDeleted: seg.IsDeleted,
		Scoring:   scoringEnabled,
	}
}

// matchingDocs runs q against seg alone and returns every live docnum it
// matches, the single-segment search spec.md §4.9's delete_by_query and
// optimize-time filtering both reduce to.
func matchingDocs(seg *segment.Segment, weighting scoring.Weighting, q query.Query) (*roaring.Bitmap, error) {
	stats := NewSegmentStats(seg)
	ctx := ContextFor(seg, weighting, stats, false)

	simplified, err := q.Simplify(ctx.Source)
	if err != nil {
		return nil, err
	}
	simplified = simplified.Normalize()

	m, err := simplified.Matcher(ctx)
	if err != nil {
		return nil, err
	}

	out := roaring.New()
	for m.IsActive() {
		out.Add(uint32(m.ID()))
		if _, err := m.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// QueryMatcher adapts MatchingDocs to segmentlist.QueryMatcher, letting
// internal/writer wire a SegmentList to a real single-segment search
// path instead of the package's fakeMatcher test stub.
type QueryMatcher struct {
	Weighting scoring.Weighting
}

// NewQueryMatcher builds a QueryMatcher scoring with weighting (the
// weighting choice is irrelevant to which docs match, only to their
// score, but Query.Matcher needs one to build scored leaf matchers).
func NewQueryMatcher(weighting scoring.Weighting) *QueryMatcher {
	return &QueryMatcher{Weighting: weighting}
}

func (qm *QueryMatcher) MatchingDocs(seg *segment.Segment, q query.Query) (*roaring.Bitmap, error) {
	return matchingDocs(seg, qm.Weighting, q)
}
