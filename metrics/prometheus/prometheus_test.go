package prometheus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchgraph"
	"github.com/hupe1980/batchgraph/graph/memgraph"
	"github.com/hupe1980/batchgraph/idcache"
	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

func TestCollector_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCommit("vertices", 10, time.Millisecond, nil)
	c.RecordCommit("vertices", 10, time.Millisecond, errors.New("boom"))
	c.RecordCommit("edges", 5, time.Millisecond, nil)
	c.RecordWave(4, 40, time.Millisecond)
	c.RecordSkipped()
	c.RecordSkipped()
	c.RecordLoad(100, time.Second, nil)

	assert.Equal(t, float64(10), testutil.ToFloat64(c.commitOps.WithLabelValues("vertices")))
	assert.Equal(t, float64(5), testutil.ToFloat64(c.commitOps.WithLabelValues("edges")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.waves))
	assert.Equal(t, float64(40), testutil.ToFloat64(c.waveVertices))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.skipped))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.loads.WithLabelValues("success")))
	assert.Equal(t, float64(100), testutil.ToFloat64(c.loadTriples))
	assert.Equal(t, 3, testutil.CollectAndCount(c.commitLatency))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestCollector_Loader(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	l, err := batchgraph.NewLoader(memgraph.New(),
		batchgraph.WithIDShape(idcache.ShapeNumber),
		batchgraph.WithTransactionSize(2),
		batchgraph.WithNumThreads(2),
		batchgraph.WithMetricsCollector(c),
	)
	require.NoError(t, err)

	r, err := l.Load(context.Background(), source.Slice{
		model.MustProperty(1, "name", "alice"),
		model.MustProperty(2, "name", "bob"),
		model.MustEdge(1, "knows", 2, nil),
		model.MustEdge(2, "knows", 3, nil),
	})
	require.NoError(t, err)

	assert.Equal(t, float64(r.Skipped), testutil.ToFloat64(c.skipped))
	assert.Equal(t, float64(r.Waves), testutil.ToFloat64(c.waves))
	assert.Equal(t, float64(r.VerticesCreated), testutil.ToFloat64(c.waveVertices))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.loadTriples))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.loads.WithLabelValues("success")))
}
