package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/internal/cli/output"
	"github.com/localix/preloadd/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective configuration: file values with environment
overrides and defaults applied. Secrets are masked.

By default outputs YAML format. Use --output json for JSON.

Examples:
  # Show default config as YAML
  preloadd config show

  # Show as JSON
  preloadd config show --output json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath(cmd))
	if err != nil {
		return err
	}
	masked := maskSecrets(*cfg)

	format, _ := cmd.Flags().GetString("output")
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	if f == output.FormatJSON {
		return output.PrintJSON(os.Stdout, masked)
	}
	return output.PrintYAML(os.Stdout, masked)
}

const secretMask = "********"

// maskSecrets returns cfg with credentials replaced by a mask.
func maskSecrets(cfg config.Config) config.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = secretMask
		}
	}
	mask(&cfg.API.JWT.Secret)
	mask(&cfg.Backend.HTTP.Token)
	mask(&cfg.Backend.SQL.Postgres.Password)
	mask(&cfg.Backend.S3.SecretAccessKey)
	return cfg
}
