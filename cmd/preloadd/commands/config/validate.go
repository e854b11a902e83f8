package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/pkg/config"
	"github.com/localix/preloadd/pkg/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the preloadd configuration file.

Checks for syntax errors, missing required fields, invalid values and
resources that do not fit the selected backend.

Examples:
  # Validate default config
  preloadd config validate

  # Validate specific config file
  preloadd config validate --config /etc/preloadd/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}

	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Backend:          %s\n", cfg.Backend.Type)
	_, _ = fmt.Fprintf(out, "  Resources:        %d\n", len(cfg.Resources))
	_, _ = fmt.Fprintf(out, "  Cache capacity:   %d (ttl %s)\n", cfg.Cache.Capacity, cfg.Cache.TTL)
	_, _ = fmt.Fprintf(out, "  Refresh interval: %s\n", cfg.Preload.RefreshInterval)
	_, _ = fmt.Fprintf(out, "  API port:         %d\n", cfg.API.Port)
	_, _ = fmt.Fprintf(out, "  Log level:        %s\n", cfg.Logging.Level)
	return nil
}

// configWarnings lists settings that are valid but likely unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if cfg.API.IsEnabled() && cfg.API.JWT.Secret == "" {
		warnings = append(warnings, "api.jwt.secret is not set - the management API is unauthenticated")
	}
	if cfg.Backend.Type == source.TypeHTTP && cfg.Backend.HTTP.BaseURL == config.DefaultBackendURL {
		warnings = append(warnings, "backend.http.base_url is the sample URL")
	}
	if !cfg.Preload.IsEnabled() {
		warnings = append(warnings, "preload.enabled is false - resources load only on demand")
	}
	if cfg.Cache.Capacity < len(cfg.Resources) {
		warnings = append(warnings, fmt.Sprintf("cache.capacity (%d) is below the number of resources (%d) - entries will be evicted every batch",
			cfg.Cache.Capacity, len(cfg.Resources)))
	}
	if cfg.Cache.TTL > 0 && cfg.Cache.TTL < cfg.Preload.RefreshInterval {
		warnings = append(warnings, fmt.Sprintf("cache.ttl (%s) is shorter than preload.refresh_interval (%s) - cached data expires before it is refreshed",
			cfg.Cache.TTL, cfg.Preload.RefreshInterval))
	}
	return warnings
}
