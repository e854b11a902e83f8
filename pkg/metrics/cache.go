package metrics

import (
	"github.com/localix/preloadd/pkg/cache"
)

// NewCacheMetrics creates a Prometheus-backed cache.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or the
// Prometheus implementation was not linked in. Pass the result straight to
// cache.WithMetrics; a nil sink is skipped.
//
// Example usage:
//
//	metrics.InitRegistry()
//	store := cache.New[V](capacity, cache.WithMetrics(metrics.NewCacheMetrics()))
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() || newPrometheusCacheMetrics == nil {
		return nil
	}
	return newPrometheusCacheMetrics()
}

// newPrometheusCacheMetrics is implemented in pkg/metrics/prometheus/cache.go.
// The indirection avoids an import cycle.
var newPrometheusCacheMetrics func() cache.Metrics

// RegisterCacheMetricsConstructor registers the Prometheus cache metrics constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterCacheMetricsConstructor(constructor func() cache.Metrics) {
	newPrometheusCacheMetrics = constructor
}
