// Package segmentlist implements spec.md §4.10's SegmentList: the
// mutable set of a writer's current segments and its in-flight merges,
// plus the tiered merge policy that proposes which segments to combine.
// Grounded on original_source/src/whoosh/writing/segmentlist.py's
// SegmentList class and original_source/tests/test_merging.py's
// FakeSegment-driven TieredMergeStrategy expectations (the strategy's
// own implementation, merging.py, did not survive the pack's filtering
// — see DESIGN.md).
package segmentlist

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/segment"
	"github.com/cinderfts/cinder/internal/storage"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/seginfo"
)

// QueryMatcher resolves a query against one segment's live documents,
// the seam `internal/searcher`'s QueryMatcher implements (internal/writer
// passes one to New). SegmentList only needs this much of a Searcher's
// capability to apply delete_by_query.
type QueryMatcher interface {
	MatchingDocs(seg *segment.Segment, q query.Query) (*roaring.Bitmap, error)
}

// SegmentList owns the mutable set of current segments and in-flight
// merges for one IndexWriter, serializing access with a mutex since a
// ParallelIndexWriter's workers and the merge-completion callback can
// all reach it concurrently (spec.md §5's "completion callback is
// serialized onto the writer thread" still lets ordinary reads/writes
// from worker goroutines interleave here).
type SegmentList struct {
	mu sync.Mutex

	schema  *schema.Schema
	store   storage.Storage
	matcher QueryMatcher
	log     *zap.SugaredLogger

	segments      []*segment.Segment
	currentMerges map[string]*Merge
}

// New builds an empty SegmentList. store is used to delete the files of
// segments dropped by a completed merge; matcher resolves delete_by_query
// against a single segment.
func New(sch *schema.Schema, store storage.Storage, matcher QueryMatcher, log *zap.SugaredLogger) *SegmentList {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SegmentList{
		schema:        sch,
		store:         store,
		matcher:       matcher,
		log:           log,
		currentMerges: make(map[string]*Merge),
	}
}

// Len returns the number of current segments.
func (sl *SegmentList) Len() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.segments)
}

// Segments returns a snapshot of the current segment list.
func (sl *SegmentList) Segments() []*segment.Segment {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	out := make([]*segment.Segment, len(sl.segments))
	copy(out, sl.segments)
	return out
}

// MergingIDs returns the union of every segment id currently locked up
// in an in-flight merge, so a merge policy never proposes them again.
func (sl *SegmentList) MergingIDs() map[string]bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	ids := make(map[string]bool)
	for _, m := range sl.currentMerges {
		for _, id := range m.SegmentIDs {
			ids[id] = true
		}
	}
	return ids
}

// AddSegment adds seg to the list, unless it carries no live documents
// (a segment flushed from a batch that was entirely deleted before
// commit contributes nothing and is dropped immediately, matching
// segmentlist.py's add_segment "not added because the segment is
// empty" branch).
func (sl *SegmentList) AddSegment(seg *segment.Segment) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if seg.LiveCount() == 0 {
		sl.log.Infow("not adding empty segment", "segmentID", seg.ID())
		return
	}
	sl.log.Infow("adding segment", "segmentID", seg.ID())
	sl.segments = append(sl.segments, seg)
}

// RemoveSegment drops segID from the list without touching storage,
// returning a SegmentNotFound error if it is not present.
func (sl *SegmentList) RemoveSegment(segID string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for i, s := range sl.segments {
		if s.ID() == segID {
			sl.segments = append(sl.segments[:i], sl.segments[i+1:]...)
			return nil
		}
	}
	return cerrors.NewSegmentNotFoundError(segID)
}

func (sl *SegmentList) findLocked(segID string) *segment.Segment {
	for _, s := range sl.segments {
		if s.ID() == segID {
			return s
		}
	}
	return nil
}

// AddMerge registers m as in flight. The caller is responsible for
// choosing SegmentIDs from the current segment list (typically via a
// MergePolicy) before calling this.
func (sl *SegmentList) AddMerge(m *Merge) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if _, exists := sl.currentMerges[m.ID]; exists {
		return cerrors.NewMergeNotFoundError(m.ID).WithMessage("merge id already registered")
	}
	sl.log.Infow("adding merge", "mergeID", m.ID, "segments", m.SegmentIDs)
	sl.currentMerges[m.ID] = m
	return nil
}

// Integrate is called once mergeID's background task has produced
// newSegment: it atomically swaps the merged-out segments for the new
// one, replays any deletions queued against the merge while it ran, and
// deletes the merged-out segments' files from storage.
func (sl *SegmentList) Integrate(newSegment *segment.Segment, mergeID string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	m, ok := sl.currentMerges[mergeID]
	if !ok {
		return cerrors.NewMergeNotFoundError(mergeID)
	}
	delete(sl.currentMerges, mergeID)

	segIDs := m.segmentIDSet()
	var dropped []*segment.Segment
	kept := sl.segments[:0:0]
	for _, s := range sl.segments {
		if segIDs[s.ID()] {
			dropped = append(dropped, s)
			continue
		}
		kept = append(kept, s)
	}
	sl.segments = kept

	if newSegment.LiveCount() > 0 {
		sl.segments = append(sl.segments, newSegment)
	}

	for _, q := range m.DeleteQueries {
		if err := sl.applyDeletionsLocked(newSegment, q); err != nil {
			return err
		}
	}

	for _, s := range dropped {
		sl.log.Infow("deleting merged-out segment", "segmentID", s.ID())
		sl.cleanupSegmentFiles(s)
	}
	return nil
}

// FailMerge discards a failed merge's bookkeeping without integrating
// anything. Per spec.md §4.10, "the input segments remain live" — any
// deletions queued for the merge's (never produced) output are instead
// replayed directly onto the still-current input segments so they are
// not silently lost.
func (sl *SegmentList) FailMerge(mergeID string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	m, ok := sl.currentMerges[mergeID]
	if !ok {
		return cerrors.NewMergeNotFoundError(mergeID)
	}
	delete(sl.currentMerges, mergeID)

	for _, segID := range m.SegmentIDs {
		seg := sl.findLocked(segID)
		if seg == nil {
			continue
		}
		for _, q := range m.DeleteQueries {
			if err := sl.applyDeletionsLocked(seg, q); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteByQuery marks every current segment's matches deleted, and
// queues q onto every in-flight merge so the deletion is not lost when
// that merge resolves.
func (sl *SegmentList) DeleteByQuery(q query.Query) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	for _, seg := range sl.segments {
		if err := sl.applyDeletionsLocked(seg, q); err != nil {
			return err
		}
	}
	for _, m := range sl.currentMerges {
		m.DeleteQueries = append(m.DeleteQueries, q)
	}
	return nil
}

// applyDeletionsLocked runs q against seg via the configured matcher and
// marks every match deleted. A segment that becomes entirely deleted as
// a result is dropped from the list immediately, matching
// segmentlist.py's apply_query_deletions "removed empty segment"
// follow-up.
func (sl *SegmentList) applyDeletionsLocked(seg *segment.Segment, q query.Query) error {
	bm, err := sl.matcher.MatchingDocs(seg, q)
	if err != nil {
		return err
	}
	if bm == nil || bm.IsEmpty() {
		return nil
	}
	it := bm.Iterator()
	for it.HasNext() {
		seg.Delete(uint64(it.Next()))
	}
	if seg.LiveCount() == 0 {
		for i, s := range sl.segments {
			if s.ID() == seg.ID() {
				sl.segments = append(sl.segments[:i], sl.segments[i+1:]...)
				break
			}
		}
	}
	return nil
}

// cleanupSegmentFiles deletes every codec file a segment owns. Deleting
// a name that does not exist is not an error (storage.Storage's
// DeleteFile contract), so the fixed extensions and every schema field's
// optional column/vector extension can be deleted unconditionally.
func (sl *SegmentList) cleanupSegmentFiles(seg *segment.Segment) {
	id := seg.ID()
	exts := []string{"pst", "trm", "fln", "fdt"}
	if sl.schema != nil {
		for _, field := range sl.schema.FieldNames() {
			ft, _ := sl.schema.Field(field)
			if ft.Column != nil {
				exts = append(exts, "col."+field)
			}
			if ft.IndexedForm.Positions {
				exts = append(exts, "vec."+field)
			}
		}
	}
	for _, ext := range exts {
		if err := sl.store.DeleteFile(seginfo.SegmentFileName(id, ext)); err != nil {
			sl.log.Warnw("failed to delete segment file", "segmentID", id, "ext", ext, "error", err)
		}
	}
}
