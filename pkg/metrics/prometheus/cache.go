// Package prometheus implements the metrics sinks on top of
// prometheus/client_golang. Importing it registers the constructors with
// pkg/metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/localix/preloadd/pkg/cache"
	"github.com/localix/preloadd/pkg/metrics"
)

func init() {
	metrics.RegisterCacheMetricsConstructor(newCacheMetricsIface)
	metrics.RegisterFetchMetricsConstructor(newFetchMetricsIface)
	metrics.RegisterPreloadMetricsConstructor(newPreloadMetricsIface)
}

// CacheMetrics is the Prometheus implementation of cache.Metrics.
type CacheMetrics struct {
	lookups   *prometheus.CounterVec
	evictions *prometheus.CounterVec
	size      prometheus.Gauge
}

// NewCacheMetrics creates a new Prometheus-backed cache metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCacheMetrics() *CacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &CacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "preloadd_cache_lookups_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "preloadd_cache_evictions_total",
				Help: "Total number of entries evicted by reason",
			},
			[]string{"reason"}, // "capacity", "expired"
		),
		size: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "preloadd_cache_entries",
				Help: "Current number of cache entries",
			},
		),
	}
}

func (m *CacheMetrics) RecordHit() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *CacheMetrics) RecordMiss() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *CacheMetrics) RecordEviction(reason cache.EvictionReason, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.evictions.WithLabelValues(string(reason)).Add(float64(count))
}

func (m *CacheMetrics) RecordSize(size int) {
	if m == nil {
		return
	}
	m.size.Set(float64(size))
}

// newCacheMetricsIface avoids handing out a typed nil inside the interface.
func newCacheMetricsIface() cache.Metrics {
	if m := NewCacheMetrics(); m != nil {
		return m
	}
	return nil
}

var _ cache.Metrics = (*CacheMetrics)(nil)
