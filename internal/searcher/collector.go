package searcher

import (
	"container/heap"
	"context"

	cerrors "github.com/cinderfts/cinder/pkg/errors"
)

// Hit is one scored result, carrying the virtual, whole-index docid
// spec.md §5 describes ("the Searcher presents a virtual order by
// concatenating segment docid spaces with per-segment offsets").
type Hit struct {
	DocID uint64
	Score float64
}

// Results is a Collector's output: the top-K hits in descending score
// order, plus how many matching documents were offered to the collector
// (every match, unless a time-out cut collection short).
type Results struct {
	Hits      []Hit
	Total     int
	Truncated bool
}

// hitHeap is a min-heap on Score, letting Collector evict its current
// worst hit in O(log K) once it is full.
type hitHeap []Hit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)         { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Collector accumulates the top Limit hits across one or more segments'
// matchers, per spec.md §5's Collector cancellation contract: the
// deadline is checked at the per-doc boundary, never mid-matcher-call.
type Collector struct {
	limit int
	h     hitHeap
	total int
}

// NewCollector returns a Collector keeping the best limit hits.
func NewCollector(limit int) *Collector {
	if limit < 1 {
		limit = 1
	}
	return &Collector{limit: limit}
}

// Collect offers one (docID, score) pair to the collector.
func (c *Collector) Collect(docID uint64, score float64) {
	c.total++
	if c.h.Len() < c.limit {
		heap.Push(&c.h, Hit{DocID: docID, Score: score})
		return
	}
	if c.h[0].Score < score {
		c.h[0] = Hit{DocID: docID, Score: score}
		heap.Fix(&c.h, 0)
	}
}

// Results drains the heap into descending-score order.
func (c *Collector) Results(truncated bool) *Results {
	hits := make([]Hit, len(c.h))
	copy(hits, c.h)
	// hitHeap is a min-heap; sort descending for presentation.
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].Score > hits[i].Score {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}
	return &Results{Hits: hits, Total: c.total, Truncated: truncated}
}

// checkDeadline returns TimeLimitError once ctx's deadline has passed,
// the per-doc-boundary check spec.md §5 requires rather than an
// interrupt mid-matcher-call.
func checkDeadline(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return cerrors.NewTimeLimitError()
	default:
		return nil
	}
}
