// Package graph defines the minimal capability surface a backing graph
// store must provide to be bulk loaded.
//
// Stores hand out transactions. Every transaction is owned by exactly one
// goroutine; a store must support at least as many concurrent transactions as
// the loader runs workers. Handles returned by a committed transaction are
// valid in every later transaction.
package graph

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTxDone is returned when a transaction is used after Commit or Rollback.
	ErrTxDone = errors.New("transaction already committed or rolled back")

	// ErrDuplicateID is returned when a caller-supplied id is already taken.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownHandle is returned when a handle does not name an element
	// visible to the transaction.
	ErrUnknownHandle = errors.New("unknown handle")
)

// Handle is the opaque reference a store returns for a created vertex or edge.
// Handles are compared with ==, so stores must return comparable values.
type Handle = any

// TxMode is the transaction mode of a store.
type TxMode uint8

const (
	// ModeAuto commits every mutation on its own.
	ModeAuto TxMode = iota
	// ModeManual groups mutations until an explicit commit.
	ModeManual
)

func (m TxMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("TxMode(%d)", uint8(m))
	}
}

// Store is a backing graph store.
type Store interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) (Tx, error)

	// IgnoresSuppliedIDs reports whether the store assigns its own ids and
	// disregards the ids passed to AddVertex and AddEdge.
	IgnoresSuppliedIDs() bool
}

// Tx is a single transaction against a Store.
//
// Writes are visible to reads on the same transaction immediately and to
// other transactions after Commit.
type Tx interface {
	// AddVertex creates a vertex. A nil id asks the store to assign one.
	AddVertex(ctx context.Context, id any) (Handle, error)

	// AddEdge creates an edge labeled label from out to in.
	// A nil id asks the store to assign one.
	AddEdge(ctx context.Context, id any, out, in Handle, label string) (Handle, error)

	// Vertex looks a vertex up by id. Stores that honor supplied ids resolve
	// the caller's id; stores that ignore them resolve their own.
	Vertex(ctx context.Context, id any) (Handle, bool, error)

	// SetProperty sets a property on a vertex or edge.
	SetProperty(ctx context.Context, h Handle, key string, value any) error

	// Property reads a property of a vertex or edge.
	Property(ctx context.Context, h Handle, key string) (any, bool, error)

	// Commit makes the transaction's writes durable and visible.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's writes. Rolling back a finished
	// transaction is a no-op.
	Rollback() error
}

// ModeSwitcher is implemented by stores that expose a switchable
// transaction mode.
type ModeSwitcher interface {
	TxMode() TxMode
	SetTxMode(mode TxMode)
}

// VertexIndex is implemented by transactions that can find a vertex by
// property value. It is used to resolve external ids persisted as properties.
type VertexIndex interface {
	VertexByProperty(ctx context.Context, key string, value any) (Handle, bool, error)
}
