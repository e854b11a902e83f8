package apiclient

import (
	"context"
	"time"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
)

// Resource is the summary of one preloaded resource.
type Resource struct {
	Key         string           `json:"key"`
	Status      fetch.Status     `json:"status"`
	Priority    fetch.Priority   `json:"priority"`
	IsLoading   bool             `json:"is_loading"`
	IsStale     bool             `json:"is_stale"`
	Items       int              `json:"items"`
	Error       *fetch.ErrorInfo `json:"error,omitempty"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

// RefreshResult lists the keys a refresh or preload requested.
type RefreshResult struct {
	Requested []string `json:"requested"`
}

// ListResources returns every resource in execution order.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	return listResources[Resource](ctx, c, "/api/v1/resources")
}

// GetResource returns the state of key including its data.
func (c *Client) GetResource(ctx context.Context, key string) (*preload.PreloadedData, error) {
	return getResource[preload.PreloadedData](ctx, c, resourcePath("/api/v1/resources/%s", key))
}

// RefreshResource force-refreshes key, or every resource when key is "all".
func (c *Client) RefreshResource(ctx context.Context, key string) (*RefreshResult, error) {
	var result RefreshResult
	if err := c.post(ctx, resourcePath("/api/v1/resources/%s/refresh", key), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelFetch cancels the in-flight fetch of key. Returns an APIError for
// which IsConflict is true when nothing was loading.
func (c *Client) CancelFetch(ctx context.Context, key string) error {
	return c.delete(ctx, resourcePath("/api/v1/resources/%s/fetch", key), nil)
}

// PreloadAll runs a preload batch. priority, when non-nil, replaces every
// resource's priority for the batch.
func (c *Client) PreloadAll(ctx context.Context, priority *fetch.Priority) (*RefreshResult, error) {
	body := struct {
		Priority *fetch.Priority `json:"priority,omitempty"`
	}{Priority: priority}

	var result RefreshResult
	if err := c.post(ctx, "/api/v1/preload", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
