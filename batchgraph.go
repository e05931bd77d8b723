package batchgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/batchgraph/commit"
	"github.com/hupe1980/batchgraph/graph"
	"github.com/hupe1980/batchgraph/idcache"
	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

const (
	phaseSequential = "sequential"
	phaseVertices   = "vertices"
	phaseEdges      = "edges"
)

// BatchGraph is a write-optimized wrapper around a graph store for loading
// data in order from a single goroutine.
//
// Vertices are addressed by external id. The id-to-handle mapping is kept in
// an identifier cache and mutations are committed every transactionSize
// operations. A failed commit or store write breaks the BatchGraph: the open
// batch is rolled back and every later call returns the same error.
//
// A BatchGraph is not safe for concurrent use.
type BatchGraph struct {
	store graph.Store
	opts  options
	cache idcache.Cache
	mgr   *commit.Manager
	w     writer

	vertices int64
	edges    int64
	props    int64

	err    error
	closed bool
}

// New opens a BatchGraph over store. The store is switched to manual
// transaction mode until Close.
func New(ctx context.Context, store graph.Store, optFns ...Option) (*BatchGraph, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &ConfigError{Field: "store", Value: nil}
	}
	if o.incremental && store.IgnoresSuppliedIDs() && o.vertexIDKey == "" {
		return nil, &ConfigError{Field: "incremental loading", Value: "no vertex id key",
			cause: errors.New("store ignores supplied ids, so vertices can only be found by property")}
	}

	cache, err := o.newCache()
	if err != nil {
		return nil, err
	}

	bg := &BatchGraph{
		store: store,
		opts:  o,
		cache: cache,
		w:     newWriter(store, &o),
	}

	mgr, err := commit.Open(ctx, store, o.transactionSize, func(co *commit.Options) {
		co.Phase = phaseSequential
		co.OnCommit = bg.onCommit
	})
	if err != nil {
		return nil, translateError(err)
	}
	bg.mgr = mgr

	if o.incremental && store.IgnoresSuppliedIDs() {
		if _, ok := mgr.Tx().(graph.VertexIndex); !ok {
			_ = mgr.Abort()
			return nil, &ConfigError{Field: "incremental loading", Value: o.vertexIDKey,
				cause: errors.New("store transactions cannot look vertices up by property")}
		}
	}

	o.logger.DebugContext(ctx, "batch graph opened", "config", o.String())
	return bg, nil
}

func (b *BatchGraph) onCommit(phase string, ops int64, d time.Duration, err error) {
	b.opts.metricsCollector.RecordCommit(phase, ops, d, err)
	b.opts.logger.LogCommit(context.Background(), phase, ops, d, err)
}

// AddVertex creates a vertex for the external id and returns its handle.
// An id that was already added fails with *ConflictError and leaves the
// store untouched.
func (b *BatchGraph) AddVertex(ctx context.Context, id any) (graph.Handle, error) {
	if err := b.usable(); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, fmt.Errorf("%w: nil vertex id", idcache.ErrUnsupportedID)
	}
	if h, ok := b.cache.Get(id); ok {
		return nil, &ConflictError{ID: id, Existing: h}
	}
	if b.opts.incremental {
		h, ok, err := b.lookup(ctx, id)
		if err != nil {
			return nil, b.fail(err)
		}
		if ok {
			if err := b.cache.Put(id, h); err != nil {
				return nil, b.fail(err)
			}
			return nil, &ConflictError{ID: id, Existing: h}
		}
	}
	return b.addVertex(ctx, id)
}

func (b *BatchGraph) addVertex(ctx context.Context, id any) (graph.Handle, error) {
	h, err := b.w.createVertex(ctx, b.mgr.Tx(), id)
	if err != nil {
		return nil, b.fail(err)
	}
	if err := b.cache.Put(id, h); err != nil {
		return nil, b.fail(err)
	}
	b.vertices++
	if err := b.mgr.Tick(ctx); err != nil {
		return nil, b.fail(err)
	}
	return h, nil
}

// AddEdge creates an edge labeled label between two added vertices. A non-nil
// id is passed to the store, or kept under the edge id key when the store
// assigns its own ids. Unknown endpoints fail with *UnknownVertexError.
func (b *BatchGraph) AddEdge(ctx context.Context, id, outID, inID any, label string) (graph.Handle, error) {
	if err := b.usable(); err != nil {
		return nil, err
	}
	var props map[string]any
	if id != nil {
		props = map[string]any{model.IDKey: id}
	}
	t, err := model.NewEdgeTriple(outID, label, inID, props)
	if err != nil {
		return nil, err
	}
	return b.addEdge(ctx, t, false)
}

func (b *BatchGraph) addEdge(ctx context.Context, t model.Triple, fromTriple bool) (graph.Handle, error) {
	out, err := b.resolve(ctx, t.Out(), t, fromTriple)
	if err != nil {
		return nil, err
	}
	in, err := b.resolve(ctx, t.In(), t, fromTriple)
	if err != nil {
		return nil, err
	}

	h, err := b.w.createEdge(ctx, b.mgr.Tx(), t, out, in)
	if err != nil {
		return nil, b.fail(err)
	}
	b.edges++
	if err := b.mgr.Tick(ctx); err != nil {
		return nil, b.fail(err)
	}
	return h, nil
}

func (b *BatchGraph) resolve(ctx context.Context, id any, t model.Triple, fromTriple bool) (graph.Handle, error) {
	h, ok, err := b.vertex(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		ue := &UnknownVertexError{ID: id}
		if fromTriple {
			ue.Triple = &t
		}
		return nil, ue
	}
	return h, nil
}

// Vertex returns the handle of an added vertex. With incremental loading a
// cache miss falls back to the store and a hit there is cached.
// A vertex that cannot be found returns (nil, false, nil).
func (b *BatchGraph) Vertex(ctx context.Context, id any) (graph.Handle, bool, error) {
	if err := b.usable(); err != nil {
		return nil, false, err
	}
	return b.vertex(ctx, id)
}

func (b *BatchGraph) vertex(ctx context.Context, id any) (graph.Handle, bool, error) {
	if id == nil {
		return nil, false, nil
	}
	if h, ok := b.cache.Get(id); ok {
		return h, true, nil
	}
	if !b.opts.incremental {
		return nil, false, nil
	}

	h, ok, err := b.lookup(ctx, id)
	if err != nil {
		return nil, false, b.fail(err)
	}
	if !ok {
		return nil, false, nil
	}
	if err := b.cache.Put(id, h); err != nil {
		return nil, false, b.fail(err)
	}
	return h, true, nil
}

// lookup asks the store for a vertex created before this BatchGraph.
func (b *BatchGraph) lookup(ctx context.Context, id any) (graph.Handle, bool, error) {
	tx := b.mgr.Tx()
	if b.w.honorIDs {
		return tx.Vertex(ctx, id)
	}
	idx, ok := tx.(graph.VertexIndex)
	if !ok {
		return nil, false, nil
	}
	return idx.VertexByProperty(ctx, b.opts.vertexIDKey, id)
}

// SetVertexProperty sets a property on an added vertex.
func (b *BatchGraph) SetVertexProperty(ctx context.Context, id any, key string, value any) error {
	if err := b.usable(); err != nil {
		return err
	}
	t, err := model.NewPropertyTriple(id, key, value)
	if err != nil {
		return err
	}
	h, err := b.resolve(ctx, id, t, false)
	if err != nil {
		return err
	}
	return b.setProperty(ctx, h, t)
}

func (b *BatchGraph) setProperty(ctx context.Context, h graph.Handle, t model.Triple) error {
	if err := b.w.setProperty(ctx, b.mgr.Tx(), h, t); err != nil {
		return b.fail(err)
	}
	b.props++
	if err := b.mgr.Tick(ctx); err != nil {
		return b.fail(err)
	}
	return nil
}

// Apply writes one triple. A property triple creates its vertex on first
// sight; an edge triple requires both endpoints to exist.
func (b *BatchGraph) Apply(ctx context.Context, t model.Triple) error {
	if err := b.usable(); err != nil {
		return err
	}

	switch t.Kind() {
	case model.KindProperty:
		h, ok, err := b.vertex(ctx, t.Vertex())
		if err != nil {
			return err
		}
		if !ok {
			if h, err = b.addVertex(ctx, t.Vertex()); err != nil {
				return err
			}
		}
		return b.setProperty(ctx, h, t)
	case model.KindEdge:
		_, err := b.addEdge(ctx, t, true)
		return err
	default:
		return fmt.Errorf("%w: %v", model.ErrInvalidTriple, t)
	}
}

// Load applies every triple of one pass over src in order. It stops at the
// first error; the Report covers the triples applied so far.
// Operations left pending at the end are committed by Close, so they are
// missing from Report.Commits.
func (b *BatchGraph) Load(ctx context.Context, src source.Source) (*Report, error) {
	start := time.Now()
	r := newReport()
	v0, e0, p0, c0 := b.vertices, b.edges, b.props, b.Commits()

	err := b.load(ctx, src, r)

	r.VerticesCreated = b.vertices - v0
	r.EdgesCreated = b.edges - e0
	r.PropertiesSet = b.props - p0
	r.Commits = b.Commits() - c0
	r.Duration = time.Since(start)

	b.opts.metricsCollector.RecordLoad(r.Triples, r.Duration, err)
	b.opts.logger.LogLoad(ctx, r, err)
	return r, err
}

func (b *BatchGraph) load(ctx context.Context, src source.Source, r *Report) error {
	if err := b.usable(); err != nil {
		return err
	}
	for t, err := range src.Triples(ctx) {
		if err != nil {
			return fmt.Errorf("read triple %d: %w", r.Triples, err)
		}
		if err := b.Apply(ctx, t); err != nil {
			return err
		}
		r.Triples++
	}
	return nil
}

// Counter returns the number of mutations so far.
func (b *BatchGraph) Counter() int64 { return b.mgr.Counter() }

// Commits returns the number of successful commits so far.
func (b *BatchGraph) Commits() int64 { return b.mgr.Commits() }

// Len returns the number of cached vertex ids.
func (b *BatchGraph) Len() int { return b.cache.Len() }

// Close commits the open batch and gives the store its transaction mode
// back. It is idempotent and returns the error that broke the graph, if any.
func (b *BatchGraph) Close(ctx context.Context) error {
	if b.closed {
		return b.err
	}
	b.closed = true
	if b.err != nil {
		return b.err
	}
	if err := b.mgr.Close(ctx); err != nil {
		b.err = translateError(err)
	}
	return b.err
}

func (b *BatchGraph) usable() error {
	if b.err != nil {
		return b.err
	}
	if b.closed {
		return ErrClosed
	}
	return nil
}

// fail breaks the graph: the open batch is discarded and err becomes sticky.
func (b *BatchGraph) fail(err error) error {
	if b.err != nil {
		return b.err
	}
	b.err = translateError(err)
	_ = b.mgr.Abort()
	return b.err
}
