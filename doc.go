// Package batchgraph bulk loads vertices and edges into a transactional
// graph store.
//
// Callers address vertices by their own external ids. batchgraph keeps the
// mapping from external id to store handle in a memory-bounded identifier
// cache (package idcache) and groups mutations into transactions of a fixed
// size (package commit).
//
// Two entry points are provided:
//
//   - BatchGraph is a sequential, write-optimized wrapper. Vertices, edges
//     and properties are added in order from one goroutine.
//   - Loader loads a re-iterable triple source (package source) with several
//     workers in two passes: vertices first, then edges and properties.
//
// # Quick Start
//
//	store := memgraph.New()
//
//	loader, err := batchgraph.NewLoader(store,
//	    batchgraph.WithIDShape(idcache.ShapeNumber),
//	    batchgraph.WithTransactionSize(1000),
//	    batchgraph.WithNumThreads(8),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := loader.Load(ctx, source.Slice{
//	    model.MustProperty(1, "name", "alice"),
//	    model.MustProperty(2, "name", "bob"),
//	    model.MustEdge(1, "knows", 2, nil),
//	})
//
// # Sources
//
// The Loader reads its source twice. Single-pass input can be spooled to a
// compressed temporary file with source.Materialize. Dumps stored in S3 or
// MinIO are read with the source/s3 and source/minio packages.
//
// # Stores
//
// Stores implement graph.Store. graph/memgraph is an in-memory reference
// store; graph/badgergraph persists to Badger.
//
// # Errors
//
// Configuration problems are reported as *ConfigError. A reused external id
// fails with *ConflictError. A failed commit fails with *CommitError after
// the batch is rolled back; commits are never retried. The sequential
// BatchGraph rejects edges to unknown vertices with *UnknownVertexError, the
// Loader skips them and lists them in the Report.
//
// # Observability
//
// Logging uses log/slog through Logger (WithLogger, WithLogLevel). Metrics
// are reported to a MetricsCollector (WithMetricsCollector); package
// metrics/prometheus provides a Prometheus implementation.
package batchgraph
