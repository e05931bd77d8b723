// Package prometheus exports loader metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/batchgraph"
)

var _ batchgraph.MetricsCollector = (*Collector)(nil)

// Collector implements batchgraph.MetricsCollector.
type Collector struct {
	commitLatency *prometheus.HistogramVec
	commitOps     *prometheus.CounterVec
	waves         prometheus.Counter
	waveBatches   prometheus.Histogram
	waveVertices  prometheus.Counter
	waveLatency   prometheus.Histogram
	skipped       prometheus.Counter
	loads         *prometheus.CounterVec
	loadTriples   prometheus.Counter
	loadLatency   prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		commitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batchgraph_commit_duration_seconds",
			Help:    "Latency of transaction commits",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase", "status"}),
		commitOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchgraph_committed_operations_total",
			Help: "Mutations made durable by successful commits",
		}, []string{"phase"}),
		waves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchgraph_vertex_waves_total",
			Help: "Vertex waves joined",
		}),
		waveBatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchgraph_vertex_wave_batches",
			Help:    "Batches per vertex wave",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		waveVertices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchgraph_vertices_created_total",
			Help: "Vertices created by the vertex phase",
		}),
		waveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchgraph_vertex_wave_duration_seconds",
			Help:    "Latency of vertex waves",
			Buckets: prometheus.DefBuckets,
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchgraph_dangling_references_total",
			Help: "Triples skipped because they reference an unknown vertex",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchgraph_loads_total",
			Help: "Completed loads",
		}, []string{"status"}),
		loadTriples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchgraph_triples_read_total",
			Help: "Triples read from sources",
		}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchgraph_load_duration_seconds",
			Help:    "Latency of loads",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}

	reg.MustRegister(
		c.commitLatency,
		c.commitOps,
		c.waves,
		c.waveBatches,
		c.waveVertices,
		c.waveLatency,
		c.skipped,
		c.loads,
		c.loadTriples,
		c.loadLatency,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCommit implements batchgraph.MetricsCollector.
func (c *Collector) RecordCommit(phase string, ops int64, d time.Duration, err error) {
	c.commitLatency.WithLabelValues(phase, status(err)).Observe(d.Seconds())
	if err == nil {
		c.commitOps.WithLabelValues(phase).Add(float64(ops))
	}
}

// RecordWave implements batchgraph.MetricsCollector.
func (c *Collector) RecordWave(batches, vertices int, d time.Duration) {
	c.waves.Inc()
	c.waveBatches.Observe(float64(batches))
	c.waveVertices.Add(float64(vertices))
	c.waveLatency.Observe(d.Seconds())
}

// RecordSkipped implements batchgraph.MetricsCollector.
func (c *Collector) RecordSkipped() {
	c.skipped.Inc()
}

// RecordLoad implements batchgraph.MetricsCollector.
func (c *Collector) RecordLoad(triples int64, d time.Duration, err error) {
	c.loads.WithLabelValues(status(err)).Inc()
	c.loadTriples.Add(float64(triples))
	c.loadLatency.Observe(d.Seconds())
}
