package badgergraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchgraph"
	"github.com/hupe1980/batchgraph/graph"
	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

func openTest(t *testing.T) *Graph {
	t.Helper()
	g, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGraph_Basic(t *testing.T) {
	ctx := context.Background()
	g := openTest(t)
	assert.True(t, g.IgnoresSuppliedIDs())

	tx, err := g.Begin(ctx)
	require.NoError(t, err)

	a, err := tx.AddVertex(ctx, "ignored")
	require.NoError(t, err)
	b, err := tx.AddVertex(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	e, err := tx.AddEdge(ctx, nil, a, b, "knows")
	require.NoError(t, err)
	require.NoError(t, tx.SetProperty(ctx, e, "since", 2020))
	require.NoError(t, tx.SetProperty(ctx, a, "name", "alice"))

	v, ok, err := tx.Property(ctx, a, "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	n, err := g.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, int64(1), g.Commits())

	n, err = g.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	edges, err := g.Edges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, a, edges[0].Out)
	assert.Equal(t, b, edges[0].In)
	assert.Equal(t, "knows", edges[0].Label)

	since, ok, err := g.Property(e, "since")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2020), since)

	_, err = tx.AddVertex(ctx, nil)
	assert.ErrorIs(t, err, graph.ErrTxDone)
}

func TestGraph_Rollback(t *testing.T) {
	ctx := context.Background()
	g := openTest(t)

	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.AddVertex(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	n, err := g.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(0), g.Commits())
}

func TestGraph_UnknownHandle(t *testing.T) {
	ctx := context.Background()
	g := openTest(t)

	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	a, err := tx.AddVertex(ctx, nil)
	require.NoError(t, err)

	_, err = tx.AddEdge(ctx, nil, a, VertexHandle(999), "knows")
	assert.ErrorIs(t, err, graph.ErrUnknownHandle)

	err = tx.SetProperty(ctx, "not a handle", "k", 1)
	assert.ErrorIs(t, err, graph.ErrUnknownHandle)

	_, ok, err := tx.Vertex(ctx, uint64(999))
	require.NoError(t, err)
	assert.False(t, ok)

	h, ok, err := tx.Vertex(ctx, uint64(a.(VertexHandle)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, a, h)
}

func TestGraph_VertexIndex(t *testing.T) {
	ctx := context.Background()
	g := openTest(t)

	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	h, err := tx.AddVertex(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.SetProperty(ctx, h, "_id", "ext-1"))
	require.NoError(t, tx.Commit(ctx))

	tx, err = g.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	idx, ok := tx.(graph.VertexIndex)
	require.True(t, ok)

	got, ok, err := idx.VertexByProperty(ctx, "_id", "ext-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, h, got)

	// Overwriting drops the old index entry.
	require.NoError(t, tx.SetProperty(ctx, h, "_id", "ext-2"))
	_, ok, err = idx.VertexByProperty(ctx, "_id", "ext-1")
	require.NoError(t, err)
	assert.False(t, ok)
	got, ok, err = idx.VertexByProperty(ctx, "_id", "ext-2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, h, got)

	// Integers of any width hit the same entry.
	require.NoError(t, tx.SetProperty(ctx, h, "n", int32(7)))
	_, ok, err = idx.VertexByProperty(ctx, "n", 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGraph_Closed(t *testing.T) {
	g, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	_, err = g.Begin(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestGraph_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	g, err := Open(func(o *Options) { o.Path = dir })
	require.NoError(t, err)

	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	h, err := tx.AddVertex(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.SetProperty(ctx, h, "name", "alice"))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, g.Close())

	g, err = Open(func(o *Options) { o.Path = dir })
	require.NoError(t, err)
	defer g.Close()

	name, ok, err := g.Property(h, "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	// Handles keep growing across reopen.
	tx, err = g.Begin(ctx)
	require.NoError(t, err)
	h2, err := tx.AddVertex(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.Greater(t, h2.(VertexHandle), h.(VertexHandle))
}

func TestOpen_PathRequired(t *testing.T) {
	_, err := Open()
	assert.Error(t, err)
}

func TestGraph_ParallelLoad(t *testing.T) {
	ctx := context.Background()
	g := openTest(t)

	const n = 50
	var triples source.Slice
	for i := 0; i < n; i++ {
		triples = append(triples, model.MustProperty(i, "name", fmt.Sprintf("v%d", i)))
	}
	for i := 0; i+1 < n; i++ {
		triples = append(triples, model.MustEdge(i, "next", i+1, nil))
	}

	l, err := batchgraph.NewLoader(g,
		batchgraph.WithVertexIDKey("_id"),
		batchgraph.WithTransactionSize(10),
		batchgraph.WithNumThreads(4),
	)
	require.NoError(t, err)

	report, err := l.Load(ctx, triples)
	require.NoError(t, err)
	assert.Equal(t, int64(n), report.VerticesCreated)
	assert.Equal(t, int64(n-1), report.EdgesCreated)
	assert.Zero(t, report.Skipped)

	vertices, err := g.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, n, vertices)
	edges, err := g.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, n-1, edges)
	assert.Equal(t, report.Commits, g.Commits())

	// The external id survives as an indexed property.
	tx, err := g.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	h, ok, err := tx.(graph.VertexIndex).VertexByProperty(ctx, "_id", 7)
	require.NoError(t, err)
	require.True(t, ok)
	name, ok, err := tx.Property(ctx, h, "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v7", name)
}
