package config

import (
	"github.com/localix/preloadd/pkg/metrics"
)

// MetricsResult holds what InitializeMetrics set up.
type MetricsResult struct {
	// Server exposes /metrics; nil when metrics are disabled.
	Server *metrics.Server
}

// InitializeMetrics creates the Prometheus registry and the metrics server
// when metrics are enabled. It must run before the cache, coordinator and
// scheduler are built, since their sinks are taken from the registry.
//
// The Prometheus implementations register themselves when
// github.com/localix/preloadd/pkg/metrics/prometheus is imported.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		metrics.Disable()
		return MetricsResult{}
	}

	metrics.InitRegistry()
	return MetricsResult{Server: metrics.NewServer(cfg.Metrics.Port)}
}
