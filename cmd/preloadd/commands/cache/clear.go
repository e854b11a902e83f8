package cache

import (
	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cache entry",
	Long: `Remove every cache entry. Resource states are kept, so consumers keep
their last data until the next refresh; the next request of each resource
goes to the backend.

Examples:
  # Clear with confirmation
  preloadd cache clear

  # Clear without confirmation
  preloadd cache clear --force`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunWithConfirmation("Clear the data cache?", clearForce, func() error {
		return client.ClearCache(cmd.Context())
	}, "Cache cleared")
}
