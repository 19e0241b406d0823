package segmentlist

import (
	"github.com/cinderfts/cinder/internal/query"
)

// Merge is a promise that the segments named by SegmentIDs will
// eventually be replaced by one new segment, registered with a
// SegmentList via AddMerge and resolved by Integrate or FailMerge.
// Grounded on original_source/src/whoosh/writing/segmentlist.py's
// merging.Merge object, whose id the SegmentList keys its in-flight
// merge bookkeeping by.
type Merge struct {
	ID         string
	SegmentIDs []string

	// DeleteQueries accumulates delete_by_query calls that arrived while
	// this merge was in flight. DeleteByQuery also applies each one at
	// once to every current segment, the merge's inputs included, but the
	// merge may already have read those inputs and its output segment does
	// not exist yet, so SegmentList replays them once the merge resolves:
	// onto the new segment in Integrate, or again onto the still-live
	// inputs in FailMerge.
	DeleteQueries []query.Query
}

// segmentIDSet returns m.SegmentIDs as a lookup set.
func (m *Merge) segmentIDSet() map[string]bool {
	set := make(map[string]bool, len(m.SegmentIDs))
	for _, id := range m.SegmentIDs {
		set[id] = true
	}
	return set
}
