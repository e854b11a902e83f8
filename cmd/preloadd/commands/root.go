// Package commands implements the preloadd CLI: the daemon itself and the
// client commands that manage a running daemon through its API.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	cachecmd "github.com/localix/preloadd/cmd/preloadd/commands/cache"
	configcmd "github.com/localix/preloadd/cmd/preloadd/commands/config"
	resourcecmd "github.com/localix/preloadd/cmd/preloadd/commands/resource"
	schedulecmd "github.com/localix/preloadd/cmd/preloadd/commands/schedule"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "preloadd",
	Short: "preloadd - data cache and preload daemon",
	Long: `preloadd keeps a backend's read-mostly resources warm in memory.

It fetches the configured resources in priority order, caches the results
with a TTL, refreshes them periodically and serves their state over a
management API.

Use "preloadd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which the daemon and the
// long-running client commands stop on.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().String("config", "", "config file (default: $XDG_CONFIG_HOME/preloadd/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API server URL (default: http://localhost:<api.port>)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (default: $PRELOADD_TOKEN, or minted from api.jwt.secret)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Daemon lifecycle
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)

	// Client commands
	rootCmd.AddCommand(preloadCmd)
	rootCmd.AddCommand(resourcecmd.Cmd)
	rootCmd.AddCommand(cachecmd.Cmd)
	rootCmd.AddCommand(schedulecmd.Cmd)

	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cmdutil.Flags.ConfigFile
}
