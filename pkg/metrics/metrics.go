// Package metrics exports cache events to Prometheus.
package metrics

import (
	"time"

	"github.com/adammck/rangecache/pkg/rangecache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rangecache"

// Metrics is the Prometheus implementation of rangecache.Metrics. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	gets          *prometheus.CounterVec
	setBytes      prometheus.Counter
	evictions     prometheus.Counter
	evictedBytes  prometheus.Counter
	size          prometheus.Gauge
	keys          prometheus.Gauge
	fetches       *prometheus.CounterVec
	fetchBytes    prometheus.Counter
	fetchDuration prometheus.Histogram
}

var _ rangecache.Metrics = (*Metrics)(nil)

// New registers the cache metrics with reg. Use prometheus.DefaultRegisterer
// to have them served by promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		gets: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gets_total",
				Help:      "Cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		setBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "set_bytes_total",
			Help:      "Bytes written to the cache",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Keys evicted to stay within the max size",
		}),
		evictedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_bytes_total",
			Help:      "Cached bytes dropped by eviction",
		}),
		size: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "size_bytes",
			Help:      "Bytes currently cached, summed over every key",
		}),
		keys: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keys",
			Help:      "Keys currently cached",
		}),
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Fetches from the source by result",
			},
			[]string{"result"}, // "ok", "error"
		),
		fetchBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_bytes_total",
			Help:      "Bytes fetched from the source",
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetches from the source",
			Buckets: []float64{
				0.005,
				0.01,
				0.05,
				0.1,
				0.25,
				0.5,
				1,
				2.5,
				5,
				10,
			},
		}),
	}
}

func (m *Metrics) ObserveGet(hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.gets.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSet(bytes int) {
	if m == nil {
		return
	}
	m.setBytes.Add(float64(bytes))
}

func (m *Metrics) ObserveEviction(bytes uint64) {
	if m == nil {
		return
	}
	m.evictions.Inc()
	m.evictedBytes.Add(float64(bytes))
}

func (m *Metrics) ObserveSize(bytes uint64, keys int) {
	if m == nil {
		return
	}
	m.size.Set(float64(bytes))
	m.keys.Set(float64(keys))
}

func (m *Metrics) ObserveFetch(bytes int, d time.Duration, err error) {
	if m == nil {
		return
	}

	if err != nil {
		m.fetches.WithLabelValues("error").Inc()
		return
	}

	m.fetches.WithLabelValues("ok").Inc()
	m.fetchBytes.Add(float64(bytes))
	m.fetchDuration.Observe(d.Seconds())
}
