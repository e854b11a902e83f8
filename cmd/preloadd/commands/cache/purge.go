package cache

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop expired entries",
	Long: `Remove every cache entry whose TTL has passed. Live entries are kept.

Examples:
  preloadd cache purge`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	n, err := client.PurgeCache(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, map[string]int{"purged": n},
		fmt.Sprintf("Purged %d expired entries", n))
}
