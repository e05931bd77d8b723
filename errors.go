package batchgraph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/batchgraph/commit"
	"github.com/hupe1980/batchgraph/idcache"
	"github.com/hupe1980/batchgraph/model"
)

var (
	// ErrClosed is returned when a BatchGraph is used after Close.
	ErrClosed = errors.New("batch graph closed")
)

// ConflictError reports an external id that is already mapped to a
// different handle. It is fatal for the load.
type ConflictError = idcache.ConflictError

// CommitError reports a failed commit. The batch was rolled back and is not
// retried.
type CommitError = commit.Error

// ConfigError indicates an invalid configuration value.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Field string
	Value any
	cause error
}

func (e *ConfigError) Error() string {
	switch {
	case e.cause == nil:
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
	case e.Value == nil:
		return fmt.Sprintf("invalid %s: %v", e.Field, e.cause)
	default:
		return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.cause)
	}
}

func (e *ConfigError) Unwrap() error { return e.cause }

// UnknownVertexError is returned by the sequential BatchGraph when an edge
// references a vertex id that was never added.
type UnknownVertexError struct {
	ID any
	// Triple is set when the reference came from Apply or Load.
	Triple *model.Triple
}

func (e *UnknownVertexError) Error() string {
	if e.Triple != nil {
		return fmt.Sprintf("unknown vertex %v in %v", e.ID, *e.Triple)
	}
	return fmt.Sprintf("unknown vertex %v", e.ID)
}

// DanglingReference records an edge or property triple whose vertex was not
// loaded in the vertex phase. The parallel Loader skips such triples.
type DanglingReference struct {
	// Position is the zero-based index of the triple in the source.
	Position  int64
	Triple    model.Triple
	MissingID any
}

func (d DanglingReference) Error() string {
	return fmt.Sprintf("dangling reference at %d: vertex %v missing for %v", d.Position, d.MissingID, d.Triple)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, commit.ErrInvalidBufferSize) {
		return &ConfigError{Field: "transaction size", cause: err}
	}
	if errors.Is(err, commit.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
