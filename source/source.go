package source

import (
	"context"
	"iter"

	"github.com/hupe1980/batchgraph/model"
)

// Source is a re-iterable stream of triples.
//
// Every call to Triples starts a new pass from the first triple. Passes must
// yield the same triples in the same order. An error is yielded once with a
// zero Triple and ends the pass.
type Source interface {
	Triples(ctx context.Context) iter.Seq2[model.Triple, error]
}

// Slice is an in-memory Source.
type Slice []model.Triple

// Triples yields the elements of s in order.
func (s Slice) Triples(ctx context.Context) iter.Seq2[model.Triple, error] {
	return func(yield func(model.Triple, error) bool) {
		for _, t := range s {
			if err := ctx.Err(); err != nil {
				yield(model.Triple{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// Func adapts a function to a Source. The function is called once per pass.
type Func func(ctx context.Context) iter.Seq2[model.Triple, error]

// Triples calls f.
func (f Func) Triples(ctx context.Context) iter.Seq2[model.Triple, error] { return f(ctx) }

// Collect reads one full pass of src into memory.
func Collect(ctx context.Context, src Source) (Slice, error) {
	var out Slice
	for t, err := range src.Triples(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
