package apiclient

import "context"

// CacheStats are the data cache counters.
type CacheStats struct {
	Size      int      `json:"size"`
	Capacity  int      `json:"capacity"`
	Hits      uint64   `json:"hits"`
	Misses    uint64   `json:"misses"`
	Evictions uint64   `json:"evictions"`
	HitRate   float64  `json:"hit_rate"`
	Keys      []string `json:"keys"`
}

// GetCacheStats returns the cache counters.
func (c *Client) GetCacheStats(ctx context.Context) (*CacheStats, error) {
	return getResource[CacheStats](ctx, c, "/api/v1/cache")
}

// PurgeCache drops expired entries and returns how many were removed.
func (c *Client) PurgeCache(ctx context.Context) (int, error) {
	var result struct {
		Purged int `json:"purged"`
	}
	if err := c.post(ctx, "/api/v1/cache/purge", nil, &result); err != nil {
		return 0, err
	}
	return result.Purged, nil
}

// ClearCache removes every cache entry.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.delete(ctx, "/api/v1/cache", nil)
}
