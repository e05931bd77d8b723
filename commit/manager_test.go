package commit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchgraph/graph"
	"github.com/hupe1980/batchgraph/graph/memgraph"
)

func addVertices(t *testing.T, m *Manager, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := m.Tx().AddVertex(ctx, i)
		require.NoError(t, err)
		require.NoError(t, m.Tick(ctx))
	}
}

func TestManager_CommitLaw(t *testing.T) {
	cases := []struct {
		ops, size int
		commits   int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{7, 1, 7},
		{1000, 100, 10},
	}
	for _, tc := range cases {
		t.Run("", func(t *testing.T) {
			ctx := context.Background()
			g := memgraph.New()

			m, err := Open(ctx, g, tc.size)
			require.NoError(t, err)
			addVertices(t, m, tc.ops)

			assert.Equal(t, int64(tc.ops), m.Counter())
			assert.Equal(t, int64(tc.ops/tc.size), m.CommitsSoFar())
			assert.Equal(t, tc.ops%tc.size == 0, m.AtBoundary())

			require.NoError(t, m.Close(ctx))
			assert.Equal(t, tc.commits, m.Commits())
			assert.Equal(t, tc.commits, g.Commits())
			assert.Equal(t, tc.ops, g.VertexCount())
		})
	}
}

func TestManager_WritesVisibleOnlyAfterBoundary(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	m, err := Open(ctx, g, 3)
	require.NoError(t, err)

	addVertices(t, m, 2)
	assert.Equal(t, 0, g.VertexCount())
	assert.Equal(t, int64(2), m.Pending())

	addVertices(t, m, 1)
	assert.Equal(t, 3, g.VertexCount())
	assert.Equal(t, int64(0), m.Pending())

	require.NoError(t, m.Close(ctx))
}

func TestOpen_InvalidBufferSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Open(context.Background(), memgraph.New(), size)
		assert.ErrorIs(t, err, ErrInvalidBufferSize)
	}
}

func TestManager_RestoresMode(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()
	require.Equal(t, graph.ModeAuto, g.TxMode())

	m, err := Open(ctx, g, 5)
	require.NoError(t, err)
	assert.Equal(t, graph.ModeManual, g.TxMode())

	addVertices(t, m, 3)
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, graph.ModeAuto, g.TxMode())

	// Idempotent.
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, int64(1), m.Commits())
}

func TestManager_KeepMode(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	m, err := Open(ctx, g, 5, func(o *Options) { o.KeepMode = true })
	require.NoError(t, err)
	assert.Equal(t, graph.ModeAuto, g.TxMode())
	require.NoError(t, m.Close(ctx))
}

func TestManager_Abort(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	m, err := Open(ctx, g, 10)
	require.NoError(t, err)
	addVertices(t, m, 4)

	require.NoError(t, m.Abort())
	assert.Equal(t, 0, g.VertexCount())
	assert.Equal(t, graph.ModeAuto, g.TxMode())

	assert.ErrorIs(t, m.Tick(ctx), ErrClosed)
	require.NoError(t, m.Abort())
}

func TestManager_CommitFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	g := memgraph.New(func(o *memgraph.Options) {
		o.CommitHook = func(seq int64) error {
			if seq == 2 {
				return boom
			}
			return nil
		}
	})

	var observed []error
	m, err := Open(ctx, g, 2, func(o *Options) {
		o.Phase = "sequential"
		o.OnCommit = func(phase string, ops int64, _ time.Duration, err error) {
			assert.Equal(t, "sequential", phase)
			assert.Equal(t, int64(2), ops)
			observed = append(observed, err)
		}
	})
	require.NoError(t, err)

	addVertices(t, m, 2)

	_, err = m.Tx().AddVertex(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, m.Tick(ctx))
	_, err = m.Tx().AddVertex(ctx, 101)
	require.NoError(t, err)
	err = m.Tick(ctx)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "sequential", ce.Phase)
	assert.Equal(t, int64(1), ce.Batch)
	assert.Equal(t, int64(2), ce.Ops)

	// The failed batch is gone, the first one stays.
	assert.Equal(t, 2, g.VertexCount())
	assert.Equal(t, graph.ModeAuto, g.TxMode())

	// Broken for good, no retry.
	assert.Same(t, err, m.Tick(ctx))
	assert.Same(t, err, m.Close(ctx))
	assert.Equal(t, int64(1), m.Commits())
	assert.Len(t, observed, 2)
	assert.ErrorIs(t, observed[1], boom)
}
