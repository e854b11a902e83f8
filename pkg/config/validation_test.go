package config

import (
	"strings"
	"testing"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/source"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_Timing(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Preload.RefreshInterval = -1
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for negative refresh interval")
	}

	cfg = GetDefaultConfig()
	cfg.Preload.Cooldown = -1
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for negative cooldown")
	}

	cfg = GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for sample rate above 1")
	}
}

func TestValidate_Resources(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "no resources",
			mutate: func(c *Config) { c.Resources = nil },
			want:   "Resources",
		},
		{
			name:   "reserved key",
			mutate: func(c *Config) { c.Resources[0].Key = "all" },
			want:   "ne",
		},
		{
			name:   "duplicate key",
			mutate: func(c *Config) { c.Resources[1].Key = c.Resources[0].Key },
			want:   "duplicate",
		},
		{
			name:   "missing path",
			mutate: func(c *Config) { c.Resources[2].Path = "" },
			want:   "path is required",
		},
		{
			name: "unknown priority override",
			mutate: func(c *Config) {
				c.Preload.Priorities = map[string]fetch.Priority{"orders": fetch.PriorityHigh}
			},
			want: "unknown resource",
		},
		{
			name: "sql without query",
			mutate: func(c *Config) {
				c.Backend.Type = source.TypeSQL
				c.Backend.SQL.Type = source.DatabaseTypeSQLite
				c.Backend.SQL.SQLitePath = "/tmp/shop.db"
			},
			want: "query is required",
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Backend.Type = source.TypeS3
				for i := range c.Resources {
					c.Resources[i].ObjectKey = c.Resources[i].Key + ".json"
				}
			},
			want: "bucket is required",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Backend.Type = "ftp" },
			want:   "oneof",
		},
		{
			name:   "short jwt secret",
			mutate: func(c *Config) { c.API.JWT.Secret = "short" },
			want:   "at least 32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}
