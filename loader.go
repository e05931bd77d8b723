package batchgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/batchgraph/commit"
	"github.com/hupe1980/batchgraph/graph"
	"github.com/hupe1980/batchgraph/idcache"
	"github.com/hupe1980/batchgraph/internal/pool"
	"github.com/hupe1980/batchgraph/internal/resource"
	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

// Loader loads a re-iterable triple source into a store using several
// workers, each with its own transaction.
//
// A load makes two passes over the source. The first creates every vertex in
// waves of up to numThreads concurrent batches and records the handles in an
// identifier cache. The second applies edges and properties; the cache is
// read-only by then, so workers need no coordination. Triples that reference
// a vertex the first pass did not create are skipped and reported.
//
// By default only property triples define vertices in the first pass: an
// edge endpoint that never carries a property is a dangling reference, not
// a new vertex. This departs on purpose from creating every referenced id,
// which would leave no reference dangling. WithImplicitVertices creates
// both endpoints of every edge as well.
//
// A Loader may be reused for several loads, but not concurrently.
type Loader struct {
	store graph.Store
	opts  options
	w     writer

	// throttle is shared by both phases; nil when unlimited.
	throttle *resource.Throttle
}

// NewLoader creates a Loader for store.
func NewLoader(store graph.Store, optFns ...Option) (*Loader, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &ConfigError{Field: "store", Value: nil}
	}

	return &Loader{
		store:    store,
		opts:     o,
		w:        newWriter(store, &o),
		throttle: resource.NewThrottle(o.opsPerSec),
	}, nil
}

// Load runs both phases over src. The store stays in manual transaction
// mode for the whole load.
//
// Batches committed before a failure stay in the store. The returned Report
// is never nil.
func (l *Loader) Load(ctx context.Context, src source.Source) (*Report, error) {
	start := time.Now()
	r := newReport()

	err := l.load(ctx, src, r)
	r.Duration = time.Since(start)

	l.opts.metricsCollector.RecordLoad(r.Triples, r.Duration, err)
	l.opts.logger.LogLoad(ctx, r, err)
	return r, err
}

func (l *Loader) load(ctx context.Context, src source.Source, r *Report) error {
	if src == nil {
		return &ConfigError{Field: "source", Value: nil}
	}
	cache, err := l.opts.newCache()
	if err != nil {
		return err
	}

	restore := commit.ForceManual(l.store)
	defer restore()

	s := &loadState{Loader: l, cache: cache, report: r}

	start := time.Now()
	err = s.loadVertices(ctx, src)
	l.opts.logger.LogPhase(ctx, phaseVertices, r.Triples, time.Since(start), err)
	if err != nil {
		return translateError(err)
	}

	start = time.Now()
	n, err := s.loadEdges(ctx, src)
	l.opts.logger.LogPhase(ctx, phaseEdges, n, time.Since(start), err)
	return translateError(err)
}

// loadState is the state of a single load.
type loadState struct {
	*Loader
	cache  idcache.Cache
	report *Report

	// mu serializes cache writes and report merges.
	mu sync.Mutex
}

func (s *loadState) openBatch(ctx context.Context, phase string) (*commit.Manager, error) {
	return commit.Open(ctx, s.store, s.opts.transactionSize, func(co *commit.Options) {
		co.Phase = phase
		co.KeepMode = true
		co.OnCommit = s.onCommit
	})
}

func (s *loadState) onCommit(phase string, ops int64, d time.Duration, err error) {
	s.opts.metricsCollector.RecordCommit(phase, ops, d, err)
	s.opts.logger.LogCommit(context.Background(), phase, ops, d, err)
}

// vertexIDs returns the ids a triple defines in the vertex phase.
func (s *loadState) vertexIDs(t model.Triple) []any {
	switch {
	case t.Kind() == model.KindProperty:
		return []any{t.Vertex()}
	case s.opts.implicitVertices:
		return t.VertexIDs()
	default:
		return nil
	}
}

type vertexBatch struct {
	ids     []any
	handles []graph.Handle
	commits int64
}

// wave is a group of vertex batches running concurrently.
type wave struct {
	g       *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	batches []*vertexBatch
}

func newWave(ctx context.Context) *wave {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	return &wave{g: g, ctx: gctx, cancel: cancel}
}

// abandon stops the wave and waits for its workers.
func (w *wave) abandon() {
	w.cancel()
	_ = w.g.Wait()
}

func (s *loadState) loadVertices(ctx context.Context, src source.Source) error {
	staged := idcache.NewSet(s.opts.idShape)
	w := newWave(ctx)
	defer func() { w.abandon() }()

	ids := make([]any, 0, s.opts.transactionSize)

	// flush hands the pending ids to a worker and joins the wave once it
	// holds numThreads batches.
	flush := func() error {
		if len(ids) > 0 {
			s.dispatch(w, ids)
			ids = make([]any, 0, s.opts.transactionSize)
		}
		if len(w.batches) < s.opts.numThreads {
			return nil
		}
		err := s.join(ctx, w, staged)
		w = newWave(ctx)
		return err
	}

	for t, err := range src.Triples(ctx) {
		if err != nil {
			return fmt.Errorf("read triple %d: %w", s.report.Triples, err)
		}
		if w.ctx.Err() != nil {
			// A worker failed; surface its error.
			if err := w.g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		}
		s.report.Triples++

		for _, id := range s.vertexIDs(t) {
			if s.cache.Contains(id) {
				continue
			}
			added, err := staged.Add(id)
			if err != nil {
				return err
			}
			if !added {
				continue
			}
			ids = append(ids, id)
			if len(ids) == s.opts.transactionSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	if len(ids) > 0 {
		s.dispatch(w, ids)
	}
	if len(w.batches) == 0 {
		return nil
	}
	err := s.join(ctx, w, staged)
	w = newWave(ctx)
	return err
}

func (s *loadState) dispatch(w *wave, ids []any) {
	b := &vertexBatch{ids: ids}
	w.batches = append(w.batches, b)
	w.g.Go(func() error {
		return s.createVertices(w.ctx, b)
	})
}

// createVertices runs one vertex batch in its own transaction. The handles
// stay with the batch until the wave is merged.
func (s *loadState) createVertices(ctx context.Context, b *vertexBatch) (err error) {
	mgr, err := s.openBatch(ctx, phaseVertices)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = mgr.Abort()
		}
	}()

	b.handles = make([]graph.Handle, 0, len(b.ids))
	for _, id := range b.ids {
		if err := s.throttle.Wait(ctx, 1); err != nil {
			return err
		}
		h, err := s.w.createVertex(ctx, mgr.Tx(), id)
		if err != nil {
			return err
		}
		b.handles = append(b.handles, h)
		if err := mgr.Tick(ctx); err != nil {
			return err
		}
	}
	if err := mgr.Close(ctx); err != nil {
		return err
	}
	b.commits = mgr.Commits()
	return nil
}

// join waits for the wave and merges its handles into the cache.
func (s *loadState) join(ctx context.Context, w *wave, staged idcache.Set) error {
	start := time.Now()
	err := w.g.Wait()
	w.cancel()
	if err == nil {
		err = ctx.Err()
	}

	var n int
	if err == nil {
		n, err = s.merge(w.batches)
	}
	s.opts.logger.LogWave(ctx, int(s.report.Waves), len(w.batches), n, err)
	if err != nil {
		return err
	}
	s.opts.metricsCollector.RecordWave(len(w.batches), n, time.Since(start))

	staged.Reset()
	return nil
}

func (s *loadState) merge(batches []*vertexBatch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, b := range batches {
		for i, id := range b.ids {
			if err := s.cache.Put(id, b.handles[i]); err != nil {
				return n, err
			}
			n++
		}
		s.report.VertexBatches++
		s.report.Commits += b.commits
	}
	s.report.VerticesCreated += int64(n)
	s.report.Waves++
	return n, nil
}

type positioned struct {
	pos int64
	t   model.Triple
}

type edgeBatch struct {
	edges    int64
	props    int64
	dangling []DanglingReference
	commits  int64
}

// loadEdges is the second pass. It returns the number of triples read.
func (s *loadState) loadEdges(ctx context.Context, src source.Source) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	p := pool.NewWorkerPool(s.opts.numThreads, 0)
	defer p.Close()

	var wg sync.WaitGroup
	submit := func(items []positioned) bool {
		wg.Add(1)
		err := p.Submit(ctx, func() {
			defer wg.Done()
			if err := s.applyBatch(ctx, items); err != nil {
				cancel(err)
			}
		})
		if err != nil {
			wg.Done()
			cancel(err)
			return false
		}
		return true
	}

	var pos int64
	items := make([]positioned, 0, s.opts.transactionSize)
	for t, err := range src.Triples(ctx) {
		if err != nil {
			cancel(fmt.Errorf("read triple %d: %w", pos, err))
			break
		}
		items = append(items, positioned{pos: pos, t: t})
		pos++
		if len(items) == s.opts.transactionSize {
			if !submit(items) {
				break
			}
			items = make([]positioned, 0, s.opts.transactionSize)
		}
	}
	if len(items) > 0 && ctx.Err() == nil {
		submit(items)
	}

	wg.Wait()
	p.Close()

	return pos, context.Cause(ctx)
}

// applyBatch applies one batch of triples in its own transaction.
func (s *loadState) applyBatch(ctx context.Context, items []positioned) (err error) {
	mgr, err := s.openBatch(ctx, phaseEdges)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = mgr.Abort()
		}
	}()

	var b edgeBatch
	for _, it := range items {
		if err := s.apply(ctx, mgr, it, &b); err != nil {
			return err
		}
	}
	if err := mgr.Close(ctx); err != nil {
		return err
	}
	b.commits = mgr.Commits()

	s.mergeEdges(ctx, &b)
	return nil
}

func (s *loadState) apply(ctx context.Context, mgr *commit.Manager, it positioned, b *edgeBatch) error {
	t := it.t
	switch t.Kind() {
	case model.KindProperty:
		h, ok := s.cache.Get(t.Vertex())
		if !ok {
			b.dangling = append(b.dangling, DanglingReference{Position: it.pos, Triple: t, MissingID: t.Vertex()})
			return nil
		}
		if err := s.throttle.Wait(ctx, 1); err != nil {
			return err
		}
		if err := s.w.setProperty(ctx, mgr.Tx(), h, t); err != nil {
			return err
		}
		b.props++
	case model.KindEdge:
		out, ok := s.cache.Get(t.Out())
		if !ok {
			b.dangling = append(b.dangling, DanglingReference{Position: it.pos, Triple: t, MissingID: t.Out()})
			return nil
		}
		in, ok := s.cache.Get(t.In())
		if !ok {
			b.dangling = append(b.dangling, DanglingReference{Position: it.pos, Triple: t, MissingID: t.In()})
			return nil
		}
		if err := s.throttle.Wait(ctx, 1); err != nil {
			return err
		}
		if _, err := s.w.createEdge(ctx, mgr.Tx(), t, out, in); err != nil {
			return err
		}
		b.edges++
	default:
		return fmt.Errorf("%w at %d: %v", model.ErrInvalidTriple, it.pos, t)
	}
	return mgr.Tick(ctx)
}

func (s *loadState) mergeEdges(ctx context.Context, b *edgeBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.report
	r.EdgeBatches++
	r.Commits += b.commits
	r.EdgesCreated += b.edges
	r.PropertiesSet += b.props
	for _, ref := range r.skip(b.dangling, s.opts.maxDanglingSamples) {
		s.opts.logger.LogDangling(ctx, ref)
	}
	for range b.dangling {
		s.opts.metricsCollector.RecordSkipped()
	}
}
