package config

import (
	"strings"
	"time"

	"github.com/localix/preloadd/pkg/api"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
	"github.com/localix/preloadd/pkg/source"
)

// Cache defaults. The TTL is ten of the storefront's 30s cache windows.
const (
	DefaultCacheCapacity = 100
	DefaultCacheTTL      = 5 * time.Minute
	DefaultEvictionBatch = 1
	DefaultFetchTimeout  = 10 * time.Second
	DefaultBackendURL    = "http://localhost:8000/api"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyCacheDefaults(&cfg.Cache)
	applyPreloadDefaults(&cfg.Preload)
	applyBackendDefaults(&cfg.Backend)
	applyResourceDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the metrics port when metrics are on.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCacheCapacity
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.EvictionBatch == 0 {
		cfg.EvictionBatch = DefaultEvictionBatch
	}
}

// applyPreloadDefaults sets scheduler timing defaults. Enabled and
// AutoRefresh stay nil and read as true.
func applyPreloadDefaults(cfg *PreloadConfig) {
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = preload.DefaultInitialDelay
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = preload.DefaultRefreshInterval
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = preload.DefaultCooldown
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
}

func applyBackendDefaults(cfg *BackendConfig) {
	if cfg.Type == "" {
		cfg.Type = source.TypeHTTP
	}

	switch cfg.Type {
	case source.TypeHTTP:
		if cfg.HTTP.BaseURL == "" {
			cfg.HTTP.BaseURL = DefaultBackendURL
		}
		if cfg.HTTP.Timeout == 0 {
			cfg.HTTP.Timeout = source.DefaultHTTPTimeout
		}
		if cfg.HTTP.MaxConcurrent == 0 {
			cfg.HTTP.MaxConcurrent = source.DefaultMaxConcurrent
		}
	case source.TypeSQL:
		sqlCfg := cfg.SQL.toSource(nil)
		sqlCfg.ApplyDefaults()
		cfg.SQL.Type = sqlCfg.Type
		cfg.SQL.Postgres = sqlCfg.Postgres
	}
}

// applyResourceDefaults fills in the storefront resources when none are
// configured for the http backend.
func applyResourceDefaults(cfg *Config) {
	if len(cfg.Resources) == 0 && cfg.Backend.Type == source.TypeHTTP {
		cfg.Resources = DefaultResources()
	}
}

// DefaultResources returns the storefront resources preloaded out of the
// box: the product catalog, its categories and the sales dashboard summary.
func DefaultResources() []ResourceConfig {
	return []ResourceConfig{
		{
			Key:      "products",
			Priority: priorityPtr(fetch.PriorityMedium),
			Path:     "/productos/productos/",
			Params:   map[string]string{"ordering": "-fecha_creacion"},
		},
		{
			Key:      "categories",
			Priority: priorityPtr(fetch.PriorityHigh),
			Path:     "/categorias/categorias/",
		},
		{
			Key:      "dashboard",
			Priority: priorityPtr(fetch.PriorityLow),
			Path:     "/ventas/ventas/resumen/",
		},
	}
}

func priorityPtr(p fetch.Priority) *fetch.Priority {
	return &p
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
