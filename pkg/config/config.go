package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/localix/preloadd/pkg/api"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/source"
)

// Config represents the preloadd configuration.
//
// This structure captures every static aspect of the daemon:
//   - Logging, tracing and profiling
//   - Metrics and management API servers
//   - Cache sizing and lifetime
//   - Preload timing and per-resource priorities
//   - The backend the resources are fetched from, and the resources themselves
//
// The preload section can be changed at runtime through the API or by editing
// the file while the daemon runs (see Watcher).
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (PRELOADD_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains management API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Cache sizes the in-memory record cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Preload controls scheduled preloading
	Preload PreloadConfig `mapstructure:"preload" yaml:"preload"`

	// Backend selects where resources are fetched from
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`

	// Resources lists the preload targets
	Resources []ResourceConfig `mapstructure:"resources" validate:"required,min=1,dive" yaml:"resources"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS on the collector connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes lists the profiles to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// CacheConfig sizes the record cache.
type CacheConfig struct {
	// Capacity is the maximum number of cached resources
	// Default: 100
	Capacity int `mapstructure:"capacity" validate:"required,gt=0" yaml:"capacity"`

	// TTL is how long a cached record set stays live
	// Default: 5m
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0" yaml:"ttl"`

	// EvictionBatch is how many entries one insert into a full cache evicts
	// Default: 1
	EvictionBatch int `mapstructure:"eviction_batch" validate:"gte=0" yaml:"eviction_batch"`
}

// PreloadConfig controls when and how resources are preloaded.
type PreloadConfig struct {
	// Enabled turns scheduled preloading on
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// AutoRefresh refetches every resource each RefreshInterval
	AutoRefresh *bool `mapstructure:"auto_refresh" yaml:"auto_refresh"`

	// InitialDelay is the wait before the first batch
	// Default: 2s
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0" yaml:"initial_delay"`

	// RefreshInterval is the tick period and the staleness interval
	// Default: 5m
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gt=0" yaml:"refresh_interval"`

	// Cooldown is the pause between requests in one batch
	// Default: 100ms
	Cooldown time.Duration `mapstructure:"cooldown" validate:"gte=0" yaml:"cooldown"`

	// FetchTimeout bounds a single fetch; zero means no limit beyond the backend's
	// Default: 10s
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gte=0" yaml:"fetch_timeout"`

	// Priorities overrides resource priorities by key
	Priorities map[string]fetch.Priority `mapstructure:"priorities" yaml:"priorities,omitempty"`
}

// IsEnabled returns whether scheduled preloading is on. Defaults to true.
func (c *PreloadConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsAutoRefresh returns whether periodic refresh is on. Defaults to true.
func (c *PreloadConfig) IsAutoRefresh() bool {
	return c.AutoRefresh == nil || *c.AutoRefresh
}

// BackendConfig selects and configures the fetch backend.
type BackendConfig struct {
	// Type is the backend type
	// Valid values: http, sql, s3
	Type source.Type `mapstructure:"type" validate:"required,oneof=http sql s3" yaml:"type"`

	HTTP HTTPBackendConfig `mapstructure:"http" yaml:"http"`
	SQL  SQLBackendConfig  `mapstructure:"sql" yaml:"sql"`
	S3   S3BackendConfig   `mapstructure:"s3" yaml:"s3"`
}

// HTTPBackendConfig configures the HTTP backend.
type HTTPBackendConfig struct {
	// BaseURL is the backend API root, e.g. https://shop.example.com/api
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url" yaml:"base_url"`

	// Token is sent as a bearer token. Prefer PRELOADD_BACKEND_HTTP_TOKEN
	// over storing it in the file.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// Timeout bounds each request
	// Default: 10s
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0" yaml:"timeout"`

	// MaxConcurrent caps in-flight requests
	// Default: 10
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0" yaml:"max_concurrent"`
}

// SQLBackendConfig configures the SQL backend. Queries come from the
// resources.
type SQLBackendConfig struct {
	// Type is the database type
	// Valid values: sqlite, postgres
	Type source.DatabaseType `mapstructure:"type" validate:"omitempty,oneof=sqlite postgres" yaml:"type"`

	// SQLitePath is the database file for the sqlite type
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`

	Postgres source.PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// S3BackendConfig configures the S3 backend.
type S3BackendConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	KeyPrefix       string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// ResourceConfig declares one preload target. Which of Path, Query and
// ObjectKey is used depends on the backend type.
type ResourceConfig struct {
	// Key identifies the resource in the cache and the API
	Key string `mapstructure:"key" validate:"required,ne=all" yaml:"key"`

	// Priority orders the resource within a batch
	// Valid values: critical, high, medium, low
	// Default: medium
	Priority *fetch.Priority `mapstructure:"priority" yaml:"priority,omitempty"`

	// Path is the request path for the http backend
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// Params are query parameters (http) or named query arguments (sql)
	Params map[string]string `mapstructure:"params" yaml:"params,omitempty"`

	// ItemsField names the list field of object responses (http, s3)
	ItemsField string `mapstructure:"items_field" yaml:"items_field,omitempty"`

	// Query is the SQL text for the sql backend
	Query string `mapstructure:"query" yaml:"query,omitempty"`

	// ObjectKey is the object name for the s3 backend, relative to key_prefix
	ObjectKey string `mapstructure:"object_key" yaml:"object_key,omitempty"`
}

// GetPriority returns the configured priority, medium when unset.
func (r *ResourceConfig) GetPriority() fetch.Priority {
	if r.Priority == nil {
		return fetch.PriorityMedium
	}
	return *r.Priority
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PRELOADD_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the default location. A missing file yields
// the default configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  preloadd config init\n\n"+
				"Or specify a custom config file:\n"+
				"  preloadd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  preloadd config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the backend token and the JWT secret.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: PRELOADD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PRELOADD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about; bind the
	// secrets explicitly so they can be set without a file entry.
	_ = v.BindEnv("backend.http.token")
	_ = v.BindEnv("api.jwt.secret")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/preloadd/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		priorityDecodeHook(),
		durationDecodeHook(),
	)
}

// priorityDecodeHook converts names like "high" to fetch.Priority.
func priorityDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(fetch.Priority(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return fetch.ParsePriority(v)
		case int:
			return priorityFromInt(v)
		case float64:
			return priorityFromInt(int(v))
		default:
			return data, nil
		}
	}
}

func priorityFromInt(n int) (fetch.Priority, error) {
	p := fetch.Priority(n)
	if !p.Valid() {
		return 0, fmt.Errorf("priority %d out of range", n)
	}
	return p, nil
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "preloadd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "preloadd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
