package batchgraph

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/batchgraph/idcache"
)

const (
	// DefaultTransactionSize is the number of mutations per commit.
	DefaultTransactionSize = 1000

	// DefaultMaxDanglingSamples bounds Report.Dangling.
	DefaultMaxDanglingSamples = 100
)

type options struct {
	idShape            idcache.Shape
	transactionSize    int
	numThreads         int
	vertexIDKey        string
	edgeIDKey          string
	incremental        bool
	implicitVertices   bool
	cacheMemoryLimit   int64
	opsPerSec          int64
	maxDanglingSamples int
	metricsCollector   MetricsCollector
	logger             *Logger
}

// Option configures BatchGraph and Loader construction.
type Option func(*options)

// WithIDShape selects the identifier cache layout. It must match the ids the
// source produces: ShapeNumber for integers, ShapeString for strings,
// ShapeURL for URIs and ShapeObject for anything comparable (default).
func WithIDShape(shape idcache.Shape) Option {
	return func(o *options) {
		o.idShape = shape
	}
}

// WithTransactionSize sets the number of mutations committed per transaction.
// Defaults to 1000. Values below 1 are rejected with a ConfigError.
func WithTransactionSize(n int) Option {
	return func(o *options) {
		o.transactionSize = n
	}
}

// WithNumThreads sets the number of loader workers.
// Defaults to max(1, runtime.NumCPU()/2). Ignored by BatchGraph.
func WithNumThreads(n int) Option {
	return func(o *options) {
		o.numThreads = n
	}
}

// WithVertexIDKey stores each vertex's external id under key when the store
// assigns its own ids.
//
// With incremental loading the key is also used to find vertices created by
// an earlier load.
func WithVertexIDKey(key string) Option {
	return func(o *options) {
		o.vertexIDKey = key
	}
}

// WithEdgeIDKey stores a requested edge id under key when the store assigns
// its own ids.
func WithEdgeIDKey(key string) Option {
	return func(o *options) {
		o.edgeIDKey = key
	}
}

// WithIncrementalLoading lets BatchGraph resolve ids that are not in the
// cache by asking the store. Use it when loading into a non-empty graph.
func WithIncrementalLoading() Option {
	return func(o *options) {
		o.incremental = true
	}
}

// WithImplicitVertices makes the Loader create the endpoints of edge triples
// in the vertex phase. By default only property triples define vertices and
// edges between unknown vertices are reported as dangling.
func WithImplicitVertices() Option {
	return func(o *options) {
		o.implicitVertices = true
	}
}

// WithCacheMemoryLimit caps the estimated memory of the identifier cache.
// A load that needs more fails with idcache.ErrMemoryLimitExceeded.
// 0 means unlimited.
func WithCacheMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.cacheMemoryLimit = bytes
	}
}

// WithRateLimit throttles store mutations of the Loader across all workers.
// 0 means unlimited.
func WithRateLimit(opsPerSec int) Option {
	return func(o *options) {
		o.opsPerSec = int64(opsPerSec)
	}
}

// WithMaxDanglingSamples bounds the number of DanglingReference samples kept
// in the Report. Every skip is still counted. Defaults to 100.
func WithMaxDanglingSamples(n int) Option {
	return func(o *options) {
		o.maxDanglingSamples = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring loads.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &batchgraph.BasicMetricsCollector{}
//	loader, _ := batchgraph.NewLoader(store, batchgraph.WithMetricsCollector(metrics))
//	// ... load ...
//	stats := metrics.GetStats()
//	fmt.Printf("Commits: %d, Avg latency: %dns\n", stats.CommitCount, stats.CommitAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := batchgraph.NewJSONLogger(slog.LevelInfo)
//	loader, _ := batchgraph.NewLoader(store, batchgraph.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func defaultNumThreads() int {
	return max(1, runtime.NumCPU()/2)
}

func applyOptions(optFns []Option) options {
	o := options{
		idShape:            idcache.ShapeObject,
		transactionSize:    DefaultTransactionSize,
		numThreads:         defaultNumThreads(),
		maxDanglingSamples: DefaultMaxDanglingSamples,
		metricsCollector:   NoopMetricsCollector{},
		logger:             NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o *options) validate() error {
	if o.transactionSize < 1 {
		return &ConfigError{Field: "transaction size", Value: o.transactionSize}
	}
	if o.numThreads < 1 {
		return &ConfigError{Field: "thread count", Value: o.numThreads}
	}
	if o.cacheMemoryLimit < 0 {
		return &ConfigError{Field: "cache memory limit", Value: o.cacheMemoryLimit}
	}
	if o.opsPerSec < 0 {
		return &ConfigError{Field: "rate limit", Value: o.opsPerSec}
	}
	if o.maxDanglingSamples < 0 {
		return &ConfigError{Field: "dangling sample limit", Value: o.maxDanglingSamples}
	}
	if _, err := idcache.ParseShape(o.idShape.String()); err != nil {
		return &ConfigError{Field: "id shape", Value: o.idShape, cause: err}
	}
	return nil
}

func (o *options) newCache() (idcache.Cache, error) {
	c, err := idcache.New(o.idShape, idcache.WithMemoryLimit(o.cacheMemoryLimit))
	if err != nil {
		return nil, &ConfigError{Field: "id cache", Value: o.idShape, cause: err}
	}
	return c, nil
}

func (o *options) String() string {
	return fmt.Sprintf("shape=%s tx=%d threads=%d", o.idShape, o.transactionSize, o.numThreads)
}
