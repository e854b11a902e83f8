package apiclient

import (
	"context"

	"github.com/localix/preloadd/pkg/fetch"
)

// SchedulerConfig is the running scheduler configuration. Durations use Go
// duration syntax.
type SchedulerConfig struct {
	Enabled         bool                      `json:"enabled"`
	AutoRefresh     bool                      `json:"auto_refresh"`
	InitialDelay    string                    `json:"initial_delay"`
	RefreshInterval string                    `json:"refresh_interval"`
	Cooldown        string                    `json:"cooldown"`
	Priorities      map[string]fetch.Priority `json:"priorities,omitempty"`
}

// ConfigPatch is a partial update. Nil fields are left unchanged.
type ConfigPatch struct {
	Enabled         *bool             `json:"enabled,omitempty"`
	AutoRefresh     *bool             `json:"auto_refresh,omitempty"`
	InitialDelay    *string           `json:"initial_delay,omitempty"`
	RefreshInterval *string           `json:"refresh_interval,omitempty"`
	Cooldown        *string           `json:"cooldown,omitempty"`
	Priorities      map[string]string `json:"priorities,omitempty"`
}

// GetConfig returns the running scheduler configuration.
func (c *Client) GetConfig(ctx context.Context) (*SchedulerConfig, error) {
	return getResource[SchedulerConfig](ctx, c, "/api/v1/config")
}

// UpdateConfig applies patch to the running daemon and returns the result.
func (c *Client) UpdateConfig(ctx context.Context, patch ConfigPatch) (*SchedulerConfig, error) {
	var result SchedulerConfig
	if err := c.patch(ctx, "/api/v1/config", patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
