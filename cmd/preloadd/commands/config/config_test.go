package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/config"
)

func TestMaskSecrets(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.API.JWT.Secret = "a-very-long-secret-value-for-the-api"
	cfg.Backend.HTTP.Token = "backend-token"

	masked := maskSecrets(*cfg)
	assert.Equal(t, secretMask, masked.API.JWT.Secret)
	assert.Equal(t, secretMask, masked.Backend.HTTP.Token)
	assert.Empty(t, masked.Backend.S3.SecretAccessKey, "empty secrets stay empty")

	assert.Equal(t, "backend-token", cfg.Backend.HTTP.Token, "original is untouched")
}

func TestConfigWarnings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.API.JWT.Secret = ""
	cfg.Cache.Capacity = 1
	cfg.Cache.TTL = time.Minute
	cfg.Preload.RefreshInterval = 5 * time.Minute

	warnings := configWarnings(cfg)
	joined := ""
	for _, w := range warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, "unauthenticated")
	assert.Contains(t, joined, "sample URL")
	assert.Contains(t, joined, "evicted")
	assert.Contains(t, joined, "expires before it is refreshed")
}

func TestGenerateSchema(t *testing.T) {
	data, err := generateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "preloadd Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "cache", "preload", "backend", "resources", "api"} {
		assert.Contains(t, props, key)
	}
}
