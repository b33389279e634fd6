package rangecache

import "time"

// Metrics receives events from the cache and loader. See pkg/metrics for the
// Prometheus implementation. Pass nil (or nothing) to disable.
type Metrics interface {
	ObserveGet(hit bool)
	ObserveSet(bytes int)
	ObserveEviction(bytes uint64)
	ObserveSize(bytes uint64, keys int)
	ObserveFetch(bytes int, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveGet(bool)                        {}
func (nopMetrics) ObserveSet(int)                         {}
func (nopMetrics) ObserveEviction(uint64)                 {}
func (nopMetrics) ObserveSize(uint64, int)                {}
func (nopMetrics) ObserveFetch(int, time.Duration, error) {}
