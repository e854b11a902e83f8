package config

import (
	"context"
	"fmt"

	"github.com/localix/preloadd/pkg/cache"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/metrics"
	"github.com/localix/preloadd/pkg/preload"
	"github.com/localix/preloadd/pkg/source"
)

// CreateStore creates the record cache from configuration.
func CreateStore(cfg CacheConfig, opts ...cache.Option) *cache.Store[source.Records] {
	opts = append([]cache.Option{cache.WithEvictionBatch(cfg.EvictionBatch)}, opts...)
	return cache.New[source.Records](cfg.Capacity, opts...)
}

// CoordinatorOptions returns the fetch options implied by the cache and
// preload sections.
func (c *Config) CoordinatorOptions() []fetch.Option {
	return []fetch.Option{
		fetch.WithRefreshInterval(c.Preload.RefreshInterval),
		fetch.WithCacheTTL(c.Cache.TTL),
		fetch.WithFetchTimeout(c.Preload.FetchTimeout),
	}
}

// SchedulerConfig converts the preload section.
func (c *PreloadConfig) SchedulerConfig() preload.SchedulerConfig {
	cfg := preload.SchedulerConfig{
		Enabled:         c.IsEnabled(),
		AutoRefresh:     c.IsAutoRefresh(),
		InitialDelay:    c.InitialDelay,
		RefreshInterval: c.RefreshInterval,
		Cooldown:        c.Cooldown,
	}
	if len(c.Priorities) > 0 {
		cfg.Priorities = make(map[string]fetch.Priority, len(c.Priorities))
		for k, v := range c.Priorities {
			cfg.Priorities[k] = v
		}
	}
	return cfg
}

// Patch returns the preload section as a full patch, for applying a reloaded
// file to a running scheduler.
func (c *PreloadConfig) Patch() preload.ConfigPatch {
	sc := c.SchedulerConfig()
	return preload.ConfigPatch{
		Enabled:         &sc.Enabled,
		AutoRefresh:     &sc.AutoRefresh,
		InitialDelay:    &sc.InitialDelay,
		RefreshInterval: &sc.RefreshInterval,
		Cooldown:        &sc.Cooldown,
		Priorities:      sc.Priorities,
	}
}

// CreateFetcher builds the fetcher for the configured backend, instrumented
// when metrics are enabled. The returned close function releases backend
// connections and is never nil.
func CreateFetcher(ctx context.Context, cfg *Config) (source.Fetcher, func() error, error) {
	noop := func() error { return nil }

	var (
		f       source.Fetcher
		closeFn = noop
	)
	switch cfg.Backend.Type {
	case source.TypeHTTP:
		h, err := createHTTPFetcher(cfg.Backend.HTTP, cfg.Resources)
		if err != nil {
			return nil, noop, err
		}
		f = h
	case source.TypeSQL:
		db, err := source.NewSQL(cfg.Backend.SQL.toSource(cfg.Resources))
		if err != nil {
			return nil, noop, err
		}
		f, closeFn = db, db.Close
	case source.TypeS3:
		s3, err := source.NewS3FromConfig(ctx, cfg.Backend.S3.toSource(cfg.Resources))
		if err != nil {
			return nil, noop, err
		}
		f = s3
	default:
		return nil, noop, fmt.Errorf("unknown backend type: %q", cfg.Backend.Type)
	}

	return source.Instrument(f, cfg.Backend.Type, metrics.NewSourceMetrics()), closeFn, nil
}

func createHTTPFetcher(cfg HTTPBackendConfig, resources []ResourceConfig) (*source.HTTP, error) {
	routes := make(map[string]source.Route, len(resources))
	for _, r := range resources {
		routes[r.Key] = source.Route{
			Path:       r.Path,
			Params:     source.Params(r.Params).Clone(),
			ItemsField: r.ItemsField,
		}
	}
	return source.NewHTTP(source.HTTPConfig{
		BaseURL:       cfg.BaseURL,
		Token:         cfg.Token,
		Timeout:       cfg.Timeout,
		MaxConcurrent: cfg.MaxConcurrent,
		Routes:        routes,
	})
}

func (c *SQLBackendConfig) toSource(resources []ResourceConfig) source.SQLConfig {
	queries := make(map[string]string, len(resources))
	for _, r := range resources {
		queries[r.Key] = r.Query
	}
	return source.SQLConfig{
		Type:       c.Type,
		SQLitePath: c.SQLitePath,
		Postgres:   c.Postgres,
		Queries:    queries,
	}
}

func (c *S3BackendConfig) toSource(resources []ResourceConfig) source.S3Config {
	objects := make(map[string]source.S3Object, len(resources))
	for _, r := range resources {
		objects[r.Key] = source.S3Object{Key: r.ObjectKey, ItemsField: r.ItemsField}
	}
	return source.S3Config{
		Bucket:          c.Bucket,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		KeyPrefix:       c.KeyPrefix,
		ForcePathStyle:  c.ForcePathStyle,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Objects:         objects,
	}
}

// PreloadResources returns the configured resources bound to f.
func (c *Config) PreloadResources(f source.Fetcher) []preload.Resource {
	out := make([]preload.Resource, 0, len(c.Resources))
	for _, r := range c.Resources {
		out = append(out, preload.Resource{
			Key:      r.Key,
			Priority: r.GetPriority(),
			Fetcher:  f,
			Params:   source.Params(r.Params).Clone(),
		})
	}
	return out
}
