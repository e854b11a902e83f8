// Package metrics owns the Prometheus registry and the constructors for the
// metrics sinks used by the cache, the fetch coordinator and the preload
// scheduler.
//
// Metrics are opt-in. Until InitRegistry is called every constructor returns
// nil, and a nil sink is a no-op in every consumer, so disabled metrics cost
// nothing.
//
// The Prometheus implementations live in pkg/metrics/prometheus and register
// themselves on import:
//
//	import _ "github.com/localix/preloadd/pkg/metrics/prometheus"
//
//	metrics.InitRegistry()
//	store := cache.New[source.Records](100, cache.WithMetrics(metrics.NewCacheMetrics()))
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registryMu sync.RWMutex
	registry   *prometheus.Registry
)

// InitRegistry creates the process registry with Go runtime and process
// collectors and enables metrics. Calling it again replaces the registry,
// which tests use to start from a clean slate.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registryMu.Lock()
	registry = reg
	registryMu.Unlock()
	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry != nil
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}

// Disable drops the registry. Subsequent constructors return nil.
func Disable() {
	registryMu.Lock()
	registry = nil
	registryMu.Unlock()
}

// Handler returns the scrape handler for the current registry.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
