package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/internal/telemetry"
	"github.com/localix/preloadd/pkg/api"
	"github.com/localix/preloadd/pkg/cache"
	"github.com/localix/preloadd/pkg/config"
	"github.com/localix/preloadd/pkg/daemon"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/metrics"
	"github.com/localix/preloadd/pkg/preload"

	// Import prometheus metrics to register init() functions
	_ "github.com/localix/preloadd/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
	noWatch    bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the preloadd daemon",
	Long: `Start the preloadd daemon with the specified configuration.

By default, the daemon runs in the background. Use --foreground to run in
the foreground for debugging or when managed by a process supervisor.

Edits to the preload section of the configuration file are applied to the
running daemon without restart unless --no-watch is given.

Examples:
  # Start in background (default)
  preloadd start

  # Start in foreground
  preloadd start --foreground

  # Start with custom config file
  preloadd start --config /etc/preloadd/config.yaml

  # Start with environment variable overrides
  PRELOADD_LOGGING_LEVEL=DEBUG preloadd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/preloadd/preloadd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/preloadd/preloadd.log)")
	startCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the configuration file on change")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()

	// Initialize OpenTelemetry (if enabled)
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is cancelled by now; the exporter still needs to flush.
		if err := telemetryShutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Metrics first: the sinks below are nil until the registry exists.
	metricsResult := config.InitializeMetrics(cfg)

	fetcher, closeFetcher, err := config.CreateFetcher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s backend: %w", cfg.Backend.Type, err)
	}
	logger.Info("Backend configured", logger.KeySourceType, cfg.Backend.Type)

	store := config.CreateStore(cfg.Cache, cache.WithMetrics(metrics.NewCacheMetrics()))
	coord := fetch.NewCoordinator(store,
		append(cfg.CoordinatorOptions(), fetch.WithMetrics(metrics.NewFetchMetrics()))...)
	scheduler := preload.NewScheduler(coord, cfg.Preload.SchedulerConfig(),
		preload.WithMetrics(metrics.NewPreloadMetrics()))

	for _, r := range cfg.PreloadResources(fetcher) {
		if err := scheduler.Register(r); err != nil {
			_ = closeFetcher()
			return fmt.Errorf("failed to register resource %q: %w", r.Key, err)
		}
		logger.Debug("Resource registered", logger.KeyResource, r.Key, logger.KeyPriority, r.Priority.String())
	}

	d := daemon.New(scheduler, cfg.ShutdownTimeout)
	d.AddCloser("backend", closeFetcher)

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		d.SetMetricsServer(metricsResult.Server)
	}

	if cfg.API.IsEnabled() {
		apiServer, err := api.NewServer(cfg.API, scheduler)
		if err != nil {
			_ = closeFetcher()
			return fmt.Errorf("failed to create API server: %w", err)
		}
		d.SetAPIServer(apiServer)
	} else {
		logger.Info("API server disabled")
	}

	if !noWatch {
		if w := newConfigWatcher(scheduler); w != nil {
			d.SetConfigWatcher(w)
		}
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			_ = closeFetcher()
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	logger.Info("preloadd is running. Press Ctrl+C to stop.", "resources", len(cfg.Resources))
	return d.Serve(ctx)
}

// newConfigWatcher watches the loaded configuration file and applies the
// preload section and log level of every valid change. Returns nil when
// running on defaults without a file.
func newConfigWatcher(scheduler *preload.Scheduler) *config.Watcher {
	path := GetConfigFile()
	if path == "" {
		if !config.DefaultConfigExists() {
			return nil
		}
		path = config.GetDefaultConfigPath()
	}

	w, err := config.NewWatcher(path, func(cfg *config.Config) {
		logger.SetLevel(cfg.Logging.Level)
		if _, err := scheduler.UpdateConfig(cfg.Preload.Patch()); err != nil {
			logger.Warn("Failed to apply reloaded preload settings", logger.KeyError, err)
		}
	})
	if err != nil {
		logger.Warn("Configuration hot reload disabled", logger.KeyError, err)
		return nil
	}
	return w
}
