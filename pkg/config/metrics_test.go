package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/metrics"
)

func TestInitializeMetrics(t *testing.T) {
	t.Cleanup(metrics.Disable)

	t.Run("Disabled", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Metrics.Enabled = false

		result := InitializeMetrics(cfg)
		assert.Nil(t, result.Server)
		assert.False(t, metrics.IsEnabled())
	})

	t.Run("Enabled", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = 9191

		result := InitializeMetrics(cfg)
		require.NotNil(t, result.Server)
		assert.Equal(t, 9191, result.Server.Port())
		assert.True(t, metrics.IsEnabled())
	})
}
