package metrics

import (
	"github.com/localix/preloadd/pkg/source"
)

// NewSourceMetrics creates a Prometheus-backed source.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When nil
// is returned, source.Instrument leaves the fetcher unwrapped.
//
// Example usage:
//
//	metrics.InitRegistry()
//	f = source.Instrument(f, source.TypeHTTP, metrics.NewSourceMetrics())
func NewSourceMetrics() source.Metrics {
	if !IsEnabled() || newPrometheusSourceMetrics == nil {
		return nil
	}
	return newPrometheusSourceMetrics()
}

// newPrometheusSourceMetrics is implemented in pkg/metrics/prometheus/source.go.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusSourceMetrics func() source.Metrics

// RegisterSourceMetricsConstructor registers the Prometheus source metrics constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterSourceMetricsConstructor(constructor func() source.Metrics) {
	newPrometheusSourceMetrics = constructor
}
