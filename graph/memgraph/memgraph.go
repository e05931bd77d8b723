// Package memgraph provides an in-memory, transactional graph.Store.
//
// It is the reference backing store for the loaders: it supports concurrent
// transactions, either honors or ignores supplied ids, exposes a switchable
// transaction mode and can inject commit failures for testing.
//
// Writes of a transaction are buffered and applied atomically on Commit.
package memgraph

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/batchgraph/graph"
)

// VertexHandle identifies a vertex.
type VertexHandle uint64

// EdgeHandle identifies an edge.
type EdgeHandle uint64

// Options configures a Graph.
type Options struct {
	// IgnoreSuppliedIDs makes the store assign its own ids.
	IgnoreSuppliedIDs bool

	// CommitHook is called with the sequence number of every commit before it
	// is applied. A non-nil error fails that commit.
	CommitHook func(seq int64) error
}

// Graph is an in-memory graph.Store.
type Graph struct {
	opts Options

	mu        sync.RWMutex
	mode      graph.TxMode
	vertices  map[VertexHandle]*vertex
	edges     map[EdgeHandle]*edge
	vertexIDs map[any]VertexHandle
	edgeIDs   map[any]EdgeHandle

	next      atomic.Uint64
	commits   atomic.Int64
	rollbacks atomic.Int64
	openTx    atomic.Int64
	maxOpenTx atomic.Int64
}

type vertex struct {
	id    any
	props map[string]any
}

type edge struct {
	id    any
	out   VertexHandle
	in    VertexHandle
	label string
	props map[string]any
}

// New creates an empty Graph.
func New(optFns ...func(o *Options)) *Graph {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Graph{
		opts:      opts,
		vertices:  make(map[VertexHandle]*vertex),
		edges:     make(map[EdgeHandle]*edge),
		vertexIDs: make(map[any]VertexHandle),
		edgeIDs:   make(map[any]EdgeHandle),
	}
}

// IgnoresSuppliedIDs implements graph.Store.
func (g *Graph) IgnoresSuppliedIDs() bool { return g.opts.IgnoreSuppliedIDs }

// TxMode implements graph.ModeSwitcher.
func (g *Graph) TxMode() graph.TxMode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// SetTxMode implements graph.ModeSwitcher.
func (g *Graph) SetTxMode(mode graph.TxMode) {
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
}

// Begin implements graph.Store.
func (g *Graph) Begin(ctx context.Context) (graph.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := g.openTx.Add(1)
	for {
		peak := g.maxOpenTx.Load()
		if n <= peak || g.maxOpenTx.CompareAndSwap(peak, n) {
			break
		}
	}
	return &tx{
		g:         g,
		vertices:  make(map[VertexHandle]*vertex),
		edges:     make(map[EdgeHandle]*edge),
		vertexIDs: make(map[any]VertexHandle),
		edgeIDs:   make(map[any]EdgeHandle),
		overlay:   make(map[propKey]any),
	}, nil
}

// Commits returns the number of successful commits.
func (g *Graph) Commits() int64 { return g.commits.Load() }

// Rollbacks returns the number of rolled back transactions, failed commits included.
func (g *Graph) Rollbacks() int64 { return g.rollbacks.Load() }

// MaxConcurrentTx returns the highest number of simultaneously open transactions.
func (g *Graph) MaxConcurrentTx() int64 { return g.maxOpenTx.Load() }

// VertexCount returns the number of committed vertices.
func (g *Graph) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vertices)
}

// EdgeCount returns the number of committed edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// VertexView is a copy of a committed vertex.
type VertexView struct {
	Handle     VertexHandle
	ID         any
	Properties map[string]any
}

// EdgeView is a copy of a committed edge.
type EdgeView struct {
	Handle     EdgeHandle
	ID         any
	Out        VertexHandle
	In         VertexHandle
	Label      string
	Properties map[string]any
}

// Vertices returns all committed vertices ordered by handle.
func (g *Graph) Vertices() []VertexView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]VertexView, 0, len(g.vertices))
	for h, v := range g.vertices {
		out = append(out, VertexView{Handle: h, ID: v.id, Properties: cloneProps(v.props)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Edges returns all committed edges ordered by handle.
func (g *Graph) Edges() []EdgeView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]EdgeView, 0, len(g.edges))
	for h, e := range g.edges {
		out = append(out, EdgeView{
			Handle:     h,
			ID:         e.id,
			Out:        e.out,
			In:         e.in,
			Label:      e.label,
			Properties: cloneProps(e.props),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (g *Graph) allocate() uint64 { return g.next.Add(1) }

type propKey struct {
	h   graph.Handle
	key string
}

type tx struct {
	g    *Graph
	done bool

	vertices  map[VertexHandle]*vertex
	edges     map[EdgeHandle]*edge
	vertexIDs map[any]VertexHandle
	edgeIDs   map[any]EdgeHandle
	overlay   map[propKey]any // property writes on committed elements
}

func (t *tx) check(ctx context.Context) error {
	if t.done {
		return graph.ErrTxDone
	}
	return ctx.Err()
}

func (t *tx) finish() {
	t.done = true
	t.g.openTx.Add(-1)
}

func (t *tx) AddVertex(ctx context.Context, id any) (graph.Handle, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	h := VertexHandle(t.g.allocate())
	if t.g.opts.IgnoreSuppliedIDs || id == nil {
		id = uint64(h)
	} else {
		if err := checkID(id); err != nil {
			return nil, err
		}
		if _, ok := t.vertexIDs[id]; ok {
			return nil, fmt.Errorf("%w: vertex %v", graph.ErrDuplicateID, id)
		}
		t.g.mu.RLock()
		_, ok := t.g.vertexIDs[id]
		t.g.mu.RUnlock()
		if ok {
			return nil, fmt.Errorf("%w: vertex %v", graph.ErrDuplicateID, id)
		}
	}
	t.vertices[h] = &vertex{id: id, props: make(map[string]any)}
	t.vertexIDs[id] = h
	return h, nil
}

func (t *tx) AddEdge(ctx context.Context, id any, out, in graph.Handle, label string) (graph.Handle, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	o, ok := t.vertexVisible(out)
	if !ok {
		return nil, fmt.Errorf("%w: out vertex %v", graph.ErrUnknownHandle, out)
	}
	i, ok := t.vertexVisible(in)
	if !ok {
		return nil, fmt.Errorf("%w: in vertex %v", graph.ErrUnknownHandle, in)
	}

	h := EdgeHandle(t.g.allocate())
	if t.g.opts.IgnoreSuppliedIDs || id == nil {
		id = uint64(h)
	} else {
		if err := checkID(id); err != nil {
			return nil, err
		}
		if _, ok := t.edgeIDs[id]; ok {
			return nil, fmt.Errorf("%w: edge %v", graph.ErrDuplicateID, id)
		}
		t.g.mu.RLock()
		_, ok := t.g.edgeIDs[id]
		t.g.mu.RUnlock()
		if ok {
			return nil, fmt.Errorf("%w: edge %v", graph.ErrDuplicateID, id)
		}
	}
	t.edges[h] = &edge{id: id, out: o, in: i, label: label, props: make(map[string]any)}
	t.edgeIDs[id] = h
	return h, nil
}

func (t *tx) vertexVisible(h graph.Handle) (VertexHandle, bool) {
	vh, ok := h.(VertexHandle)
	if !ok {
		return 0, false
	}
	if _, ok := t.vertices[vh]; ok {
		return vh, true
	}
	t.g.mu.RLock()
	_, ok = t.g.vertices[vh]
	t.g.mu.RUnlock()
	return vh, ok
}

func (t *tx) Vertex(ctx context.Context, id any) (graph.Handle, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}
	if t.g.opts.IgnoreSuppliedIDs {
		var vh VertexHandle
		switch v := id.(type) {
		case VertexHandle:
			vh = v
		case uint64:
			vh = VertexHandle(v)
		default:
			return nil, false, nil
		}
		if _, ok := t.vertexVisible(vh); !ok {
			return nil, false, nil
		}
		return vh, true, nil
	}

	if checkID(id) != nil {
		return nil, false, nil
	}
	if h, ok := t.vertexIDs[id]; ok {
		return h, true, nil
	}
	t.g.mu.RLock()
	h, ok := t.g.vertexIDs[id]
	t.g.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return h, true, nil
}

func (t *tx) SetProperty(ctx context.Context, h graph.Handle, key string, value any) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	switch eh := h.(type) {
	case VertexHandle:
		if v, ok := t.vertices[eh]; ok {
			v.props[key] = value
			return nil
		}
		t.g.mu.RLock()
		_, ok := t.g.vertices[eh]
		t.g.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: vertex %v", graph.ErrUnknownHandle, h)
		}
	case EdgeHandle:
		if e, ok := t.edges[eh]; ok {
			e.props[key] = value
			return nil
		}
		t.g.mu.RLock()
		_, ok := t.g.edges[eh]
		t.g.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: edge %v", graph.ErrUnknownHandle, h)
		}
	default:
		return fmt.Errorf("%w: %T", graph.ErrUnknownHandle, h)
	}
	t.overlay[propKey{h: h, key: key}] = value
	return nil
}

func (t *tx) Property(ctx context.Context, h graph.Handle, key string) (any, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}
	switch eh := h.(type) {
	case VertexHandle:
		if v, ok := t.vertices[eh]; ok {
			val, ok := v.props[key]
			return val, ok, nil
		}
	case EdgeHandle:
		if e, ok := t.edges[eh]; ok {
			val, ok := e.props[key]
			return val, ok, nil
		}
	default:
		return nil, false, fmt.Errorf("%w: %T", graph.ErrUnknownHandle, h)
	}
	if val, ok := t.overlay[propKey{h: h, key: key}]; ok {
		return val, true, nil
	}

	t.g.mu.RLock()
	defer t.g.mu.RUnlock()
	var props map[string]any
	switch eh := h.(type) {
	case VertexHandle:
		v, ok := t.g.vertices[eh]
		if !ok {
			return nil, false, fmt.Errorf("%w: vertex %v", graph.ErrUnknownHandle, h)
		}
		props = v.props
	case EdgeHandle:
		e, ok := t.g.edges[eh]
		if !ok {
			return nil, false, fmt.Errorf("%w: edge %v", graph.ErrUnknownHandle, h)
		}
		props = e.props
	}
	val, ok := props[key]
	return val, ok, nil
}

// VertexByProperty implements graph.VertexIndex with a linear scan.
func (t *tx) VertexByProperty(ctx context.Context, key string, value any) (graph.Handle, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}
	for h, v := range t.vertices {
		if got, ok := v.props[key]; ok && equal(got, value) {
			return h, true, nil
		}
	}

	t.g.mu.RLock()
	defer t.g.mu.RUnlock()
	for h, v := range t.g.vertices {
		got, ok := t.overlay[propKey{h: h, key: key}]
		if !ok {
			got, ok = v.props[key]
		}
		if ok && equal(got, value) {
			return h, true, nil
		}
	}
	return nil, false, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	g := t.g
	defer t.finish()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.opts.IgnoreSuppliedIDs {
		for id := range t.vertexIDs {
			if _, ok := g.vertexIDs[id]; ok {
				g.rollbacks.Add(1)
				return fmt.Errorf("%w: vertex %v", graph.ErrDuplicateID, id)
			}
		}
		for id := range t.edgeIDs {
			if _, ok := g.edgeIDs[id]; ok {
				g.rollbacks.Add(1)
				return fmt.Errorf("%w: edge %v", graph.ErrDuplicateID, id)
			}
		}
	}

	if g.opts.CommitHook != nil {
		if err := g.opts.CommitHook(g.commits.Load() + 1); err != nil {
			g.rollbacks.Add(1)
			return err
		}
	}

	for h, v := range t.vertices {
		g.vertices[h] = v
	}
	for id, h := range t.vertexIDs {
		g.vertexIDs[id] = h
	}
	for h, e := range t.edges {
		g.edges[h] = e
	}
	for id, h := range t.edgeIDs {
		g.edgeIDs[id] = h
	}
	for pk, val := range t.overlay {
		switch h := pk.h.(type) {
		case VertexHandle:
			if v, ok := g.vertices[h]; ok {
				v.props[pk.key] = val
			}
		case EdgeHandle:
			if e, ok := g.edges[h]; ok {
				e.props[pk.key] = val
			}
		}
	}
	g.commits.Add(1)
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	t.g.rollbacks.Add(1)
	return nil
}

func checkID(id any) error {
	if !reflect.ValueOf(id).Comparable() {
		return fmt.Errorf("memgraph: id of type %T is not comparable", id)
	}
	return nil
}

func equal(a, b any) bool {
	if reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func cloneProps(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
