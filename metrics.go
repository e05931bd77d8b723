package batchgraph

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordCommit is called after each commit attempt.
	// phase is "sequential", "vertices" or "edges"; ops is the batch size.
	RecordCommit(phase string, ops int64, duration time.Duration, err error)

	// RecordWave is called after each vertex wave is joined and merged.
	RecordWave(batches, vertices int, duration time.Duration)

	// RecordSkipped is called for every dangling reference the loader skips.
	RecordSkipped()

	// RecordLoad is called when a load finishes.
	RecordLoad(triples int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCommit(string, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordWave(int, int, time.Duration)               {}
func (NoopMetricsCollector) RecordSkipped()                                   {}
func (NoopMetricsCollector) RecordLoad(int64, time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	CommitOps        atomic.Int64
	CommitTotalNanos atomic.Int64
	WaveCount        atomic.Int64
	WaveBatches      atomic.Int64
	WaveVertices     atomic.Int64
	SkippedCount     atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadTriples      atomic.Int64
	LoadTotalNanos   atomic.Int64
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(_ string, ops int64, duration time.Duration, err error) {
	b.CommitCount.Add(1)
	b.CommitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CommitErrors.Add(1)
		return
	}
	b.CommitOps.Add(ops)
}

// RecordWave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWave(batches, vertices int, _ time.Duration) {
	b.WaveCount.Add(1)
	b.WaveBatches.Add(int64(batches))
	b.WaveVertices.Add(int64(vertices))
}

// RecordSkipped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkipped() {
	b.SkippedCount.Add(1)
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(triples int64, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTriples.Add(triples)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CommitCount:    b.CommitCount.Load(),
		CommitErrors:   b.CommitErrors.Load(),
		CommitOps:      b.CommitOps.Load(),
		CommitAvgNanos: b.getAvgCommitNanos(),
		WaveCount:      b.WaveCount.Load(),
		WaveBatches:    b.WaveBatches.Load(),
		WaveVertices:   b.WaveVertices.Load(),
		SkippedCount:   b.SkippedCount.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadTriples:    b.LoadTriples.Load(),
		LoadAvgNanos:   b.getAvgLoadNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgCommitNanos() int64 {
	count := b.CommitCount.Load()
	if count == 0 {
		return 0
	}
	return b.CommitTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgLoadNanos() int64 {
	count := b.LoadCount.Load()
	if count == 0 {
		return 0
	}
	return b.LoadTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CommitCount    int64
	CommitErrors   int64
	CommitOps      int64
	CommitAvgNanos int64
	WaveCount      int64
	WaveBatches    int64
	WaveVertices   int64
	SkippedCount   int64
	LoadCount      int64
	LoadErrors     int64
	LoadTriples    int64
	LoadAvgNanos   int64
}
