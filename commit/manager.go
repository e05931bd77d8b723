package commit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/batchgraph/graph"
)

var (
	// ErrInvalidBufferSize is returned by Open when the buffer size is below 1.
	ErrInvalidBufferSize = errors.New("buffer size must be at least 1")

	// ErrClosed is returned when the manager is used after Close or Abort.
	ErrClosed = errors.New("commit manager closed")
)

// Error reports a failed commit. The batch has been rolled back.
type Error struct {
	// Phase names the stage that committed ("sequential", "vertices", "edges").
	Phase string
	// Batch is the zero-based index of the failed commit.
	Batch int64
	// Ops is the number of operations the batch held.
	Ops   int64
	cause error
}

func (e *Error) Error() string {
	if e.Phase == "" {
		return fmt.Sprintf("commit of batch %d (%d ops) failed: %v", e.Batch, e.Ops, e.cause)
	}
	return fmt.Sprintf("%s: commit of batch %d (%d ops) failed: %v", e.Phase, e.Batch, e.Ops, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Options configures a Manager.
type Options struct {
	// Phase is recorded in commit errors and passed to OnCommit.
	Phase string

	// KeepMode leaves the store's transaction mode untouched. Used when the
	// caller already switched the mode for a wider scope.
	KeepMode bool

	// OnCommit is called after every commit attempt.
	OnCommit func(phase string, ops int64, d time.Duration, err error)
}

// Manager batches store mutations into transactions of a fixed size.
//
// Every mutation is followed by a Tick. When the counter reaches a multiple
// of the buffer size the open transaction is committed and a new one begins.
// Close commits whatever is left, so a run of n operations produces exactly
// ceil(n/size) commits.
//
// A Manager is owned by a single goroutine.
type Manager struct {
	store graph.Store
	size  int64
	opts  Options

	tx      graph.Tx
	counter int64
	pending int64
	commits int64

	restore func()
	err     error
	done    bool
}

// Open begins the first transaction. If the store exposes a transaction mode
// it is switched to manual until Close or Abort.
func Open(ctx context.Context, store graph.Store, bufferSize int, optFns ...func(o *Options)) (*Manager, error) {
	if bufferSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferSize, bufferSize)
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Manager{
		store:   store,
		size:    int64(bufferSize),
		opts:    opts,
		restore: func() {},
	}
	if !opts.KeepMode {
		m.restore = ForceManual(store)
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		m.restore()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	m.tx = tx
	return m, nil
}

// ForceManual switches store to manual transaction mode when it supports
// mode switching and returns a func that restores the previous mode.
func ForceManual(store graph.Store) (restore func()) {
	ms, ok := store.(graph.ModeSwitcher)
	if !ok {
		return func() {}
	}
	prev := ms.TxMode()
	ms.SetTxMode(graph.ModeManual)
	return func() { ms.SetTxMode(prev) }
}

// Tx returns the open transaction. It changes after every boundary commit,
// so callers must not hold on to it across Tick.
func (m *Manager) Tx() graph.Tx { return m.tx }

// Tick records one completed mutation and commits on a batch boundary.
func (m *Manager) Tick(ctx context.Context) error {
	if err := m.usable(); err != nil {
		return err
	}

	m.counter++
	m.pending++
	if m.counter%m.size != 0 {
		return nil
	}

	if err := m.commit(ctx); err != nil {
		return err
	}

	tx, err := m.store.Begin(ctx)
	if err != nil {
		m.fail(fmt.Errorf("begin transaction: %w", err))
		return m.err
	}
	m.tx = tx
	return nil
}

// Counter returns the number of ticks so far.
func (m *Manager) Counter() int64 { return m.counter }

// AtBoundary reports whether the counter sits on a batch boundary.
func (m *Manager) AtBoundary() bool { return m.counter%m.size == 0 }

// CommitsSoFar returns counter/size, the number of boundary commits.
func (m *Manager) CommitsSoFar() int64 { return m.counter / m.size }

// Commits returns the number of successful commits, including the final one.
func (m *Manager) Commits() int64 { return m.commits }

// Pending returns the number of mutations in the open transaction.
func (m *Manager) Pending() int64 { return m.pending }

// Err returns the error that broke the manager, if any.
func (m *Manager) Err() error { return m.err }

// Close commits pending mutations, or discards the transaction when there are
// none, and restores the store's mode. Calling Close again returns the same
// result.
func (m *Manager) Close(ctx context.Context) error {
	if m.done {
		return m.err
	}
	if m.err != nil {
		m.done = true
		return m.err
	}
	defer func() {
		m.done = true
		m.restore()
	}()

	if m.pending == 0 {
		_ = m.tx.Rollback()
		return nil
	}
	return m.commit(ctx)
}

// Abort rolls the open transaction back and restores the store's mode.
func (m *Manager) Abort() error {
	if m.done {
		return nil
	}
	m.done = true
	defer m.restore()
	if m.err != nil {
		// The failed transaction was already rolled back.
		return nil
	}
	return m.tx.Rollback()
}

func (m *Manager) usable() error {
	if m.err != nil {
		return m.err
	}
	if m.done {
		return ErrClosed
	}
	return nil
}

func (m *Manager) commit(ctx context.Context) error {
	start := time.Now()
	ops := m.pending
	err := m.tx.Commit(ctx)
	if m.opts.OnCommit != nil {
		m.opts.OnCommit(m.opts.Phase, ops, time.Since(start), err)
	}
	if err != nil {
		_ = m.tx.Rollback()
		m.fail(&Error{Phase: m.opts.Phase, Batch: m.commits, Ops: ops, cause: err})
		return m.err
	}
	m.commits++
	m.pending = 0
	return nil
}

// fail breaks the manager and gives the store its mode back.
func (m *Manager) fail(err error) {
	m.err = err
	m.restore()
	m.restore = func() {}
}
