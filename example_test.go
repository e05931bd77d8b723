package batchgraph_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hupe1980/batchgraph"
	"github.com/hupe1980/batchgraph/graph/memgraph"
	"github.com/hupe1980/batchgraph/idcache"
	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

// ExampleLoader loads a small graph with two workers.
func ExampleLoader() {
	ctx := context.Background()
	store := memgraph.New()

	loader, err := batchgraph.NewLoader(store,
		batchgraph.WithIDShape(idcache.ShapeNumber),
		batchgraph.WithTransactionSize(2),
		batchgraph.WithNumThreads(2),
	)
	if err != nil {
		log.Fatal(err)
	}

	report, err := loader.Load(ctx, source.Slice{
		model.MustProperty(1, "name", "alice"),
		model.MustProperty(2, "name", "bob"),
		model.MustProperty(3, "name", "carol"),
		model.MustEdge(1, "knows", 2, nil),
		model.MustEdge(2, "knows", 3, nil),
		model.MustEdge(3, "knows", 4, nil), // vertex 4 does not exist
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("vertices=%d edges=%d skipped=%d\n", report.VerticesCreated, report.EdgesCreated, report.Skipped)
	fmt.Println("missing:", report.Dangling[0].MissingID)
	// Output:
	// vertices=3 edges=2 skipped=1
	// missing: 4
}

// ExampleBatchGraph adds vertices and edges in order.
func ExampleBatchGraph() {
	ctx := context.Background()
	store := memgraph.New()

	bg, err := batchgraph.New(ctx, store, batchgraph.WithTransactionSize(100))
	if err != nil {
		log.Fatal(err)
	}

	for _, name := range []string{"alice", "bob"} {
		if _, err := bg.AddVertex(ctx, name); err != nil {
			log.Fatal(err)
		}
	}
	if _, err := bg.AddEdge(ctx, nil, "alice", "bob", "knows"); err != nil {
		log.Fatal(err)
	}

	_, err = bg.AddEdge(ctx, nil, "alice", "dave", "knows")
	var unknown *batchgraph.UnknownVertexError
	fmt.Println("unknown vertex:", errors.As(err, &unknown), unknown.ID)

	if err := bg.Close(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("vertices=%d edges=%d commits=%d\n", store.VertexCount(), store.EdgeCount(), store.Commits())
	// Output:
	// unknown vertex: true dave
	// vertices=2 edges=1 commits=1
}
