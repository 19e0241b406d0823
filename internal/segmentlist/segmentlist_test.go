package segmentlist

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/cinderfts/cinder/internal/analysis"
	"github.com/cinderfts/cinder/internal/query"
	"github.com/cinderfts/cinder/internal/schema"
	"github.com/cinderfts/cinder/internal/segment"
	"github.com/cinderfts/cinder/internal/storage"
	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/options"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.New()
	require.NoError(t, sch.AddField("title", schema.NewTextFieldType(analysis.WhitespaceAnalyzer{}, true, true)))
	return sch
}

// buildSegment writes n documents (all with the same title) into a
// fresh segment under store, returning it opened for reading.
func buildSegment(t *testing.T, store storage.Storage, sch *schema.Schema, n int) *segment.Segment {
	t.Helper()
	tmp, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	opts := options.NewDefaultOptions()
	w, err := segment.NewWriter(store, tmp, sch, &opts)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		doc := schema.NewDocument().Set("title", "hello world")
		require.NoError(t, w.AddDocument(doc))
	}

	info, err := w.Finish()
	require.NoError(t, err)

	seg, err := segment.Open(store, sch, info)
	require.NoError(t, err)
	t.Cleanup(func() { seg.Close() })
	return seg
}

// fakeMatcher marks a fixed set of docnums deleted regardless of which
// query is run, letting tests drive SegmentList's bookkeeping without
// needing a real single-segment query execution path.
type fakeMatcher struct {
	docs map[string]*roaring.Bitmap
}

func newFakeMatcher() *fakeMatcher {
	return &fakeMatcher{docs: make(map[string]*roaring.Bitmap)}
}

func (f *fakeMatcher) markDeleted(segID string, docnums ...uint32) {
	bm, ok := f.docs[segID]
	if !ok {
		bm = roaring.New()
		f.docs[segID] = bm
	}
	bm.AddMany(docnums)
}

func (f *fakeMatcher) MatchingDocs(seg *segment.Segment, q query.Query) (*roaring.Bitmap, error) {
	bm, ok := f.docs[seg.ID()]
	if !ok {
		return roaring.New(), nil
	}
	return bm, nil
}

func TestAddSegmentSkipsEmpty(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	sl := New(sch, store, newFakeMatcher(), nil)

	tmp, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	opts := options.NewDefaultOptions()
	w, err := segment.NewWriter(store, tmp, sch, &opts)
	require.NoError(t, err)
	info, err := w.Finish()
	require.NoError(t, err)
	empty, err := segment.Open(store, sch, info)
	require.NoError(t, err)
	t.Cleanup(func() { empty.Close() })

	sl.AddSegment(empty)
	require.Equal(t, 0, sl.Len())
}

func TestAddAndRemoveSegment(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	sl := New(sch, store, newFakeMatcher(), nil)
	seg := buildSegment(t, store, sch, 2)

	sl.AddSegment(seg)
	require.Equal(t, 1, sl.Len())

	require.NoError(t, sl.RemoveSegment(seg.ID()))
	require.Equal(t, 0, sl.Len())

	err = sl.RemoveSegment(seg.ID())
	require.Error(t, err)
	var ee *cerrors.EngineError
	require.ErrorAs(t, err, &ee)
}

func TestIntegrateSwapsSegmentsAndReplaysDeletions(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	fm := newFakeMatcher()
	sl := New(sch, store, fm, nil)

	segA := buildSegment(t, store, sch, 2)
	segB := buildSegment(t, store, sch, 2)
	merged := buildSegment(t, store, sch, 4)

	sl.AddSegment(segA)
	sl.AddSegment(segB)

	m := &Merge{ID: "m1", SegmentIDs: []string{segA.ID(), segB.ID()}}
	require.NoError(t, sl.AddMerge(m))
	require.True(t, sl.MergingIDs()[segA.ID()])

	sl.DeleteByQuery(query.Every)
	require.Len(t, m.DeleteQueries, 1, "delete queued against the in-flight merge")

	fm.markDeleted(merged.ID(), 0, 1)

	require.NoError(t, sl.Integrate(merged, "m1"))

	segs := sl.Segments()
	require.Len(t, segs, 1)
	require.Equal(t, merged.ID(), segs[0].ID())
	require.Equal(t, uint64(2), merged.LiveCount(), "replayed delete-by-query applied to the new segment")

	require.Empty(t, sl.MergingIDs())
}

func TestIntegrateUnknownMergeID(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	sl := New(sch, store, newFakeMatcher(), nil)
	merged := buildSegment(t, store, sch, 1)

	err = sl.Integrate(merged, "does-not-exist")
	require.Error(t, err)
}

func TestFailMergeReplaysDeletionsOntoLiveInputs(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	fm := newFakeMatcher()
	sl := New(sch, store, fm, nil)

	segA := buildSegment(t, store, sch, 2)
	sl.AddSegment(segA)

	m := &Merge{ID: "m1", SegmentIDs: []string{segA.ID()}}
	require.NoError(t, sl.AddMerge(m))

	sl.DeleteByQuery(query.Every)
	require.Len(t, m.DeleteQueries, 1)
	require.Equal(t, uint64(2), segA.LiveCount(), "the fake matcher marks nothing in segA yet, so the immediate pass deletes nothing")

	fm.markDeleted(segA.ID(), 0)

	require.NoError(t, sl.FailMerge("m1"))
	require.Equal(t, uint64(1), segA.LiveCount(), "replayed onto the still-live input segment")
	require.Empty(t, sl.MergingIDs())

	segs := sl.Segments()
	require.Len(t, segs, 1)
	require.Equal(t, segA.ID(), segs[0].ID(), "input segment remains live, as spec'd for a failed merge")
}

func TestDeleteByQueryAppliesImmediatelyToCurrentSegments(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	fm := newFakeMatcher()
	sl := New(sch, store, fm, nil)

	segA := buildSegment(t, store, sch, 2)
	sl.AddSegment(segA)

	fm.markDeleted(segA.ID(), 0)
	require.NoError(t, sl.DeleteByQuery(query.Every))

	require.Equal(t, uint64(1), segA.LiveCount())
}

func TestDeleteByQueryRemovesFullyDeletedSegment(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	fm := newFakeMatcher()
	sl := New(sch, store, fm, nil)

	segA := buildSegment(t, store, sch, 2)
	sl.AddSegment(segA)

	fm.markDeleted(segA.ID(), 0, 1)
	require.NoError(t, sl.DeleteByQuery(query.Every))

	require.Equal(t, 0, sl.Len())
}

func TestTieredMergePolicyProposesCrowdedLevel(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	var segs []*segment.Segment
	for i := 0; i < 12; i++ {
		segs = append(segs, buildSegment(t, store, sch, 1))
	}

	p := NewTieredMergePolicy()
	p.MinMergeSize = 1
	p.SegmentsPerTier = 10
	p.MaxMergeAtOnce = 4

	candidates := p.FindMerges(segs, map[string]bool{}, 0)
	require.NotEmpty(t, candidates, "12 same-size segments at one level should exceed SegmentsPerTier and propose a merge")
	for _, c := range candidates {
		require.LessOrEqual(t, len(c.SegmentIDs), p.MaxMergeAtOnce)
	}
}

func TestTieredMergePolicySkipsWhenUnderTier(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	var segs []*segment.Segment
	for i := 0; i < 3; i++ {
		segs = append(segs, buildSegment(t, store, sch, 1))
	}

	p := NewTieredMergePolicy()
	p.SegmentsPerTier = 10

	candidates := p.FindMerges(segs, map[string]bool{}, 0)
	require.Empty(t, candidates)
}

func TestTieredMergePolicyRespectsMaxMergeCount(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	var segs []*segment.Segment
	for i := 0; i < 12; i++ {
		segs = append(segs, buildSegment(t, store, sch, 1))
	}

	p := NewTieredMergePolicy()
	p.MinMergeSize = 1
	p.SegmentsPerTier = 10
	p.MaxMergeCount = 1

	candidates := p.FindMerges(segs, map[string]bool{}, 1)
	require.Empty(t, candidates, "already at MaxMergeCount in-flight merges")
}

func TestTieredMergePolicyTooBigSkipsCandidate(t *testing.T) {
	sch := testSchema(t)
	store, err := storage.NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)

	var segs []*segment.Segment
	for i := 0; i < 12; i++ {
		segs = append(segs, buildSegment(t, store, sch, 1))
	}

	p := NewTieredMergePolicy()
	p.MinMergeSize = 1
	p.SegmentsPerTier = 10
	p.MaxMergedSegmentSize = 1 // impossibly small, every candidate set exceeds it

	candidates := p.FindMerges(segs, map[string]bool{}, 0)
	require.Empty(t, candidates)
}
