package metrics

import (
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
)

// NewFetchMetrics creates a Prometheus-backed fetch.Metrics instance.
//
// Returns nil if metrics are not enabled.
func NewFetchMetrics() fetch.Metrics {
	if !IsEnabled() || newPrometheusFetchMetrics == nil {
		return nil
	}
	return newPrometheusFetchMetrics()
}

// NewPreloadMetrics creates a Prometheus-backed preload.Metrics instance.
//
// Returns nil if metrics are not enabled.
func NewPreloadMetrics() preload.Metrics {
	if !IsEnabled() || newPrometheusPreloadMetrics == nil {
		return nil
	}
	return newPrometheusPreloadMetrics()
}

var (
	newPrometheusFetchMetrics   func() fetch.Metrics
	newPrometheusPreloadMetrics func() preload.Metrics
)

// RegisterFetchMetricsConstructor registers the Prometheus fetch metrics constructor.
func RegisterFetchMetricsConstructor(constructor func() fetch.Metrics) {
	newPrometheusFetchMetrics = constructor
}

// RegisterPreloadMetricsConstructor registers the Prometheus preload metrics constructor.
func RegisterPreloadMetricsConstructor(constructor func() preload.Metrics) {
	newPrometheusPreloadMetrics = constructor
}
