package batchgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refsAt(positions ...int64) []DanglingReference {
	refs := make([]DanglingReference, len(positions))
	for i, p := range positions {
		refs[i] = DanglingReference{Position: p, MissingID: p}
	}
	return refs
}

func positionsOf(refs []DanglingReference) []int64 {
	out := make([]int64, len(refs))
	for i, ref := range refs {
		out[i] = ref.Position
	}
	return out
}

func TestReport_SkipKeepsLowestPositions(t *testing.T) {
	r := newReport()

	kept := r.skip(refsAt(40, 41, 42), 3)
	assert.Equal(t, []int64{40, 41, 42}, positionsOf(kept))

	// An earlier batch finishing later replaces the higher samples.
	kept = r.skip(refsAt(5, 50), 3)
	assert.Equal(t, []int64{5}, positionsOf(kept))
	assert.Equal(t, []int64{5, 40, 41}, positionsOf(r.Dangling))

	kept = r.skip(refsAt(60, 61), 3)
	assert.Empty(t, kept)
	assert.Equal(t, []int64{5, 40, 41}, positionsOf(r.Dangling))

	kept = r.skip(refsAt(1, 2, 3, 4), 3)
	assert.Equal(t, []int64{1, 2, 3}, positionsOf(kept))
	assert.Equal(t, []int64{1, 2, 3}, positionsOf(r.Dangling))

	assert.Equal(t, int64(11), r.Skipped)
	for _, p := range []int64{1, 4, 5, 42, 50, 61} {
		assert.True(t, r.WasSkipped(p), "position %d", p)
	}
	assert.False(t, r.WasSkipped(0))
}

func TestReport_SkipWithoutSamples(t *testing.T) {
	r := newReport()
	kept := r.skip(refsAt(1, 2), 0)
	assert.Empty(t, kept)
	assert.Empty(t, r.Dangling)
	require.Equal(t, int64(2), r.Skipped)
	assert.Equal(t, uint64(2), r.SkippedPositions.GetCardinality())
}
