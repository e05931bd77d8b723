// Package badgergraph is a graph.Store persisted in BadgerDB.
//
// Every graph.Tx maps onto one read-write Badger transaction, so a batch is
// committed atomically or not at all. The store assigns its own ids:
// external ids are kept as properties by the loaders (see
// batchgraph.WithVertexIDKey) and found again through the property index.
//
// Key layout:
//
//	v<handle>              vertex marker
//	e<handle>              edge record (out, in, label)
//	p<kind><handle><key>   property value
//	x<key>\x00<value>      vertex property index -> handle
package badgergraph

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/batchgraph/codec"
	"github.com/hupe1980/batchgraph/graph"
)

// VertexHandle identifies a vertex.
type VertexHandle uint64

// EdgeHandle identifies an edge.
type EdgeHandle uint64

const (
	prefixVertex = 'v'
	prefixEdge   = 'e'
	prefixProp   = 'p'
	prefixIndex  = 'x'

	kindVertex = 'v'
	kindEdge   = 'e'
)

var sequenceKey = []byte("!seq")

// ErrClosed is returned by Begin after Close.
var ErrClosed = errors.New("badgergraph: graph closed")

// Options configures a Graph.
type Options struct {
	// Path is the directory for the database files. Required unless InMemory.
	Path string

	// InMemory keeps everything in memory. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal log. nil disables it.
	Logger *slog.Logger

	// Codec encodes edge records and property values. Defaults to codec.Default.
	Codec codec.Codec

	// SequenceBandwidth is the number of handles leased from Badger at once.
	SequenceBandwidth uint64
}

// Graph is a Badger-backed graph.Store.
type Graph struct {
	db    *badger.DB
	seq   *badger.Sequence
	codec codec.Codec

	mu   sync.RWMutex
	mode graph.TxMode

	commits atomic.Int64
	closed  atomic.Bool
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates a Graph.
func Open(optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{
		SequenceBandwidth: 1000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.SequenceBandwidth == 0 {
		opts.SequenceBandwidth = 1
	}
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("badgergraph: path is required for a persistent graph")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0750); err != nil {
			return nil, fmt.Errorf("create graph directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence(sequenceKey, opts.SequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open handle sequence: %w", err)
	}

	return &Graph{db: db, seq: seq, codec: opts.Codec}, nil
}

// OpenInMemory opens an empty in-memory Graph.
func OpenInMemory() (*Graph, error) {
	return Open(func(o *Options) { o.InMemory = true })
}

// Close releases the handle sequence and closes the database.
// Safe to call multiple times.
func (g *Graph) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := g.seq.Release()
	return errors.Join(err, g.db.Close())
}

// IgnoresSuppliedIDs implements graph.Store. Handles are always assigned.
func (g *Graph) IgnoresSuppliedIDs() bool { return true }

// TxMode implements graph.ModeSwitcher. Badger is always transactional; the
// mode is tracked so callers can restore it.
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
	if g.closed.Load() {
		return nil, ErrClosed
	}
	return &tx{g: g, txn: g.db.NewTransaction(true)}, nil
}

// Commits returns the number of successful commits.
func (g *Graph) Commits() int64 { return g.commits.Load() }

// VertexCount returns the number of committed vertices.
func (g *Graph) VertexCount() (int, error) { return g.count(prefixVertex) }

// EdgeCount returns the number of committed edges.
func (g *Graph) EdgeCount() (int, error) { return g.count(prefixEdge) }

func (g *Graph) count(prefix byte) (int, error) {
	var n int
	err := g.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{prefix}})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Edge is a committed edge.
type Edge struct {
	Handle EdgeHandle
	Out    VertexHandle
	In     VertexHandle
	Label  string
}

// Edges returns all committed edges ordered by handle.
func (g *Graph) Edges() ([]Edge, error) {
	var out []Edge
	err := g.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: []byte{prefixEdge}})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			h := EdgeHandle(binary.BigEndian.Uint64(item.Key()[1:]))
			err := item.Value(func(val []byte) error {
				var rec edgeRecord
				if err := g.codec.Unmarshal(val, &rec); err != nil {
					return err
				}
				out = append(out, Edge{Handle: h, Out: VertexHandle(rec.Out), In: VertexHandle(rec.In), Label: rec.Label})
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode edge %d: %w", h, err)
			}
		}
		return nil
	})
	return out, err
}

// Property reads a committed property.
func (g *Graph) Property(h graph.Handle, key string) (any, bool, error) {
	var (
		v  any
		ok bool
	)
	err := g.db.View(func(txn *badger.Txn) error {
		t := &tx{g: g, txn: txn}
		var err error
		v, ok, err = t.property(h, key)
		return err
	})
	return v, ok, err
}

type edgeRecord struct {
	Out   uint64 `json:"o"`
	In    uint64 `json:"i"`
	Label string `json:"l"`
}

type tx struct {
	g    *Graph
	txn  *badger.Txn
	done bool
}

func (t *tx) check(ctx context.Context) error {
	if t.done {
		return graph.ErrTxDone
	}
	return ctx.Err()
}

func (t *tx) next() (uint64, error) {
	n, err := t.g.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("allocate handle: %w", err)
	}
	// Sequences start at 0; keep 0 free.
	return n + 1, nil
}

// AddVertex implements graph.Tx. The id is ignored.
func (t *tx) AddVertex(ctx context.Context, _ any) (graph.Handle, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	n, err := t.next()
	if err != nil {
		return nil, err
	}
	if err := t.txn.Set(elementKey(prefixVertex, n), []byte{1}); err != nil {
		return nil, err
	}
	return VertexHandle(n), nil
}

// AddEdge implements graph.Tx. The id is ignored.
func (t *tx) AddEdge(ctx context.Context, _ any, out, in graph.Handle, label string) (graph.Handle, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	o, err := t.vertex(out)
	if err != nil {
		return nil, fmt.Errorf("out vertex: %w", err)
	}
	i, err := t.vertex(in)
	if err != nil {
		return nil, fmt.Errorf("in vertex: %w", err)
	}

	n, err := t.next()
	if err != nil {
		return nil, err
	}
	val, err := t.g.codec.Marshal(edgeRecord{Out: uint64(o), In: uint64(i), Label: label})
	if err != nil {
		return nil, err
	}
	if err := t.txn.Set(elementKey(prefixEdge, n), val); err != nil {
		return nil, err
	}
	return EdgeHandle(n), nil
}

// vertex checks that h names a vertex visible to the transaction.
func (t *tx) vertex(h graph.Handle) (VertexHandle, error) {
	vh, ok := h.(VertexHandle)
	if !ok {
		return 0, fmt.Errorf("%w: %T", graph.ErrUnknownHandle, h)
	}
	if _, err := t.txn.Get(elementKey(prefixVertex, uint64(vh))); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, fmt.Errorf("%w: vertex %d", graph.ErrUnknownHandle, vh)
		}
		return 0, err
	}
	return vh, nil
}

// Vertex implements graph.Tx. id is a handle assigned by this store.
func (t *tx) Vertex(ctx context.Context, id any) (graph.Handle, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}
	var h VertexHandle
	switch v := id.(type) {
	case VertexHandle:
		h = v
	case uint64:
		h = VertexHandle(v)
	default:
		return nil, false, nil
	}
	if _, err := t.vertex(h); err != nil {
		if errors.Is(err, graph.ErrUnknownHandle) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return h, true, nil
}

// SetProperty implements graph.Tx.
func (t *tx) SetProperty(ctx context.Context, h graph.Handle, key string, value any) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	kind, n, err := t.element(h)
	if err != nil {
		return err
	}
	v, err := codec.WrapValue(value)
	if err != nil {
		return fmt.Errorf("property %q: %w", key, err)
	}
	val, err := t.g.codec.Marshal(v)
	if err != nil {
		return err
	}

	pk := propKey(kind, n, key)
	if kind == kindVertex {
		// Drop the index entry of the value being replaced.
		item, err := t.txn.Get(pk)
		switch {
		case err == nil:
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := t.txn.Delete(indexKey(key, old)); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := t.txn.Set(indexKey(key, val), elementKey(prefixVertex, n)[1:]); err != nil {
			return err
		}
	}
	return t.txn.Set(pk, val)
}

// element resolves a vertex or edge handle visible to the transaction.
func (t *tx) element(h graph.Handle) (byte, uint64, error) {
	switch eh := h.(type) {
	case VertexHandle:
		if _, err := t.vertex(eh); err != nil {
			return 0, 0, err
		}
		return kindVertex, uint64(eh), nil
	case EdgeHandle:
		if _, err := t.txn.Get(elementKey(prefixEdge, uint64(eh))); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return 0, 0, fmt.Errorf("%w: edge %d", graph.ErrUnknownHandle, eh)
			}
			return 0, 0, err
		}
		return kindEdge, uint64(eh), nil
	default:
		return 0, 0, fmt.Errorf("%w: %T", graph.ErrUnknownHandle, h)
	}
}

// Property implements graph.Tx.
func (t *tx) Property(ctx context.Context, h graph.Handle, key string) (any, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}
	return t.property(h, key)
}

func (t *tx) property(h graph.Handle, key string) (any, bool, error) {
	kind, n, err := t.element(h)
	if err != nil {
		return nil, false, err
	}
	item, err := t.txn.Get(propKey(kind, n, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var v codec.Value
	if err := item.Value(func(val []byte) error {
		return t.g.codec.Unmarshal(val, &v)
	}); err != nil {
		return nil, false, err
	}
	x, err := v.Any()
	if err != nil {
		return nil, false, err
	}
	return x, true, nil
}

// VertexByProperty implements graph.VertexIndex with an exact-match index.
func (t *tx) VertexByProperty(ctx context.Context, key string, value any) (graph.Handle, bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, false, err
	}
	v, err := codec.WrapValue(value)
	if err != nil {
		return nil, false, nil
	}
	val, err := t.g.codec.Marshal(v)
	if err != nil {
		return nil, false, err
	}
	item, err := t.txn.Get(indexKey(key, val))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var h VertexHandle
	err = item.Value(func(b []byte) error {
		if len(b) != 8 {
			return fmt.Errorf("badgergraph: corrupt index entry for %q", key)
		}
		h = VertexHandle(binary.BigEndian.Uint64(b))
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return h, true, nil
}

// Commit implements graph.Tx.
func (t *tx) Commit(ctx context.Context) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	t.done = true
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("badger commit: %w", err)
	}
	t.g.commits.Add(1)
	return nil
}

// Rollback implements graph.Tx.
func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Discard()
	return nil
}

func elementKey(prefix byte, n uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefix
	binary.BigEndian.PutUint64(k[1:], n)
	return k
}

func propKey(kind byte, n uint64, key string) []byte {
	k := make([]byte, 0, 10+len(key))
	k = append(k, prefixProp, kind)
	k = binary.BigEndian.AppendUint64(k, n)
	return append(k, key...)
}

func indexKey(key string, val []byte) []byte {
	k := make([]byte, 0, 2+len(key)+len(val))
	k = append(k, prefixIndex)
	k = append(k, key...)
	k = append(k, 0)
	return append(k, val...)
}
