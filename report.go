package batchgraph

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Report summarizes a load.
type Report struct {
	// Triples is the number of triples read from the source.
	Triples int64

	VerticesCreated int64
	EdgesCreated    int64
	PropertiesSet   int64

	// Skipped counts the dangling references the Loader skipped.
	Skipped int64
	// SkippedPositions holds the source position of every skipped triple.
	SkippedPositions *roaring64.Bitmap
	// Dangling keeps the skipped references with the lowest source
	// positions, in position order, bounded by WithMaxDanglingSamples.
	Dangling []DanglingReference

	// VertexBatches is the number of vertex-phase transactions.
	VertexBatches int64
	// Waves is the number of vertex waves joined.
	Waves int64
	// EdgeBatches is the number of edge-phase transactions.
	EdgeBatches int64
	// Commits counts every successful commit of the load. For
	// BatchGraph.Load it counts only the commits made while loading: the
	// operations still pending commit with BatchGraph.Close, which this
	// Report does not see. BatchGraph.Commits after Close has the total.
	Commits int64

	Duration time.Duration
}

func newReport() *Report {
	return &Report{SkippedPositions: roaring64.New()}
}

// skip records the dangling references of one batch, given in position
// order. r.Dangling keeps the maxSamples lowest positions seen so far; skip
// returns the references of refs that entered it. Not safe for concurrent use.
func (r *Report) skip(refs []DanglingReference, maxSamples int) []DanglingReference {
	for _, ref := range refs {
		r.Skipped++
		r.SkippedPositions.Add(uint64(ref.Position))
	}
	if maxSamples == 0 || len(refs) == 0 {
		return nil
	}
	if len(r.Dangling) == maxSamples && refs[0].Position > r.Dangling[maxSamples-1].Position {
		return nil
	}

	merged := make([]DanglingReference, 0, min(maxSamples, len(r.Dangling)+len(refs)))
	var kept []DanglingReference
	i, j := 0, 0
	for len(merged) < maxSamples && (i < len(r.Dangling) || j < len(refs)) {
		if j == len(refs) || (i < len(r.Dangling) && r.Dangling[i].Position < refs[j].Position) {
			merged = append(merged, r.Dangling[i])
			i++
			continue
		}
		merged = append(merged, refs[j])
		kept = append(kept, refs[j])
		j++
	}
	r.Dangling = merged
	return kept
}

// WasSkipped reports whether the triple at position was skipped.
func (r *Report) WasSkipped(position int64) bool {
	return position >= 0 && r.SkippedPositions.Contains(uint64(position))
}

func (r *Report) String() string {
	return fmt.Sprintf("triples=%d vertices=%d edges=%d properties=%d skipped=%d commits=%d duration=%s",
		r.Triples, r.VerticesCreated, r.EdgesCreated, r.PropertiesSet, r.Skipped, r.Commits, r.Duration)
}
