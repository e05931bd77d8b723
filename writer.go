package batchgraph

import (
	"context"
	"fmt"

	"github.com/hupe1980/batchgraph/graph"
	"github.com/hupe1980/batchgraph/model"
)

// writer turns external ids and triples into store mutations on a single
// transaction. It holds no state beyond configuration and is shared by all
// workers.
type writer struct {
	honorIDs    bool
	vertexIDKey string
	edgeIDKey   string
}

func newWriter(store graph.Store, o *options) writer {
	return writer{
		honorIDs:    !store.IgnoresSuppliedIDs(),
		vertexIDKey: o.vertexIDKey,
		edgeIDKey:   o.edgeIDKey,
	}
}

// createVertex adds a vertex for the external id. Stores that assign their
// own ids get the id as a property when a vertex id key is configured.
func (w writer) createVertex(ctx context.Context, tx graph.Tx, id any) (graph.Handle, error) {
	if w.honorIDs {
		h, err := tx.AddVertex(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("add vertex %v: %w", id, err)
		}
		return h, nil
	}

	h, err := tx.AddVertex(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("add vertex %v: %w", id, err)
	}
	if w.vertexIDKey != "" {
		if err := tx.SetProperty(ctx, h, w.vertexIDKey, id); err != nil {
			return nil, fmt.Errorf("set %s on vertex %v: %w", w.vertexIDKey, id, err)
		}
	}
	return h, nil
}

// createEdge adds the edge of t between the resolved endpoints and copies
// its properties. The reserved id property is passed to the store or kept
// under the edge id key, never copied verbatim.
func (w writer) createEdge(ctx context.Context, tx graph.Tx, t model.Triple, out, in graph.Handle) (graph.Handle, error) {
	reqID, hasID := t.RequestedID()

	var id any
	if hasID && w.honorIDs {
		id = reqID
	}
	h, err := tx.AddEdge(ctx, id, out, in, t.Label())
	if err != nil {
		return nil, fmt.Errorf("add edge %v: %w", t, err)
	}

	if hasID && !w.honorIDs && w.edgeIDKey != "" {
		if err := tx.SetProperty(ctx, h, w.edgeIDKey, reqID); err != nil {
			return nil, fmt.Errorf("set %s on edge %v: %w", w.edgeIDKey, t, err)
		}
	}
	for k, v := range t.Properties() {
		if k == model.IDKey {
			continue
		}
		if err := tx.SetProperty(ctx, h, k, v); err != nil {
			return nil, fmt.Errorf("set %s on edge %v: %w", k, t, err)
		}
	}
	return h, nil
}

func (w writer) setProperty(ctx context.Context, tx graph.Tx, h graph.Handle, t model.Triple) error {
	if err := tx.SetProperty(ctx, h, t.Key(), t.Value()); err != nil {
		return fmt.Errorf("set property %v: %w", t, err)
	}
	return nil
}
