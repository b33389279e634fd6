package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adammck/rangecache/pkg/impl/blobstore/memory"
	memidx "github.com/adammck/rangecache/pkg/impl/indexstore/memory"
	"github.com/adammck/rangecache/pkg/rangecache"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the value of the named metric with the given labels, or fails
// the test if there isn't one.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}

		for _, m := range mf.GetMetric() {
			if !match(m, labels) {
				continue
			}

			switch {
			case m.Counter != nil:
				return m.GetCounter().GetValue()
			case m.Gauge != nil:
				return m.GetGauge().GetValue()
			case m.Histogram != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	t.Fatalf("no metric %s%v", name, labels)
	return 0
}

func match(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveGet(true)
	m.ObserveGet(false)
	m.ObserveGet(false)
	m.ObserveSet(10)
	m.ObserveEviction(7)
	m.ObserveSize(100, 3)
	m.ObserveFetch(5, time.Second, nil)
	m.ObserveFetch(0, time.Second, errors.New("nope"))

	assert.Equal(t, 1.0, value(t, reg, "rangecache_gets_total", map[string]string{"result": "hit"}))
	assert.Equal(t, 2.0, value(t, reg, "rangecache_gets_total", map[string]string{"result": "miss"}))
	assert.Equal(t, 10.0, value(t, reg, "rangecache_set_bytes_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_evictions_total", nil))
	assert.Equal(t, 7.0, value(t, reg, "rangecache_evicted_bytes_total", nil))
	assert.Equal(t, 100.0, value(t, reg, "rangecache_size_bytes", nil))
	assert.Equal(t, 3.0, value(t, reg, "rangecache_keys", nil))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_fetches_total", map[string]string{"result": "ok"}))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_fetches_total", map[string]string{"result": "error"}))
	assert.Equal(t, 5.0, value(t, reg, "rangecache_fetch_bytes_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_fetch_duration_seconds", nil))
}

func TestNilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGet(true)
	m.ObserveSet(1)
	m.ObserveEviction(1)
	m.ObserveSize(1, 1)
	m.ObserveFetch(1, time.Second, nil)
}

func TestWiredToCache(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := rangecache.New(10, memidx.New(), memory.New(), rangecache.WithMetrics(New(reg)))

	require.NoError(t, c.Set(ctx, "a", types.Range{From: 0, To: 8}, make([]byte, 8)))
	require.NoError(t, c.Set(ctx, "b", types.Range{From: 0, To: 8}, make([]byte, 8)))

	lease, err := c.Get(ctx, "b", types.Range{From: 0, To: 8})
	require.NoError(t, err)
	require.NotNil(t, lease)
	lease.Close()

	assert.Equal(t, 16.0, value(t, reg, "rangecache_set_bytes_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_evictions_total", nil))
	assert.Equal(t, 8.0, value(t, reg, "rangecache_size_bytes", nil))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_keys", nil))
	assert.Equal(t, 1.0, value(t, reg, "rangecache_gets_total", map[string]string{"result": "hit"}))
}
