package resource

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/pkg/preload"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <key|all>",
	Short: "Force a refresh",
	Long: `Force-refresh one resource, bypassing its cached value, or every
resource with "all". A refresh of all resources is refused while any
resource is loading.

Examples:
  # Refresh one resource
  preloadd resource refresh products

  # Refresh everything
  preloadd resource refresh all`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	result, err := client.RefreshResource(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to refresh %s: %w", args[0], err)
	}

	msg := fmt.Sprintf("Refresh requested: %s", strings.Join(result.Requested, ", "))
	if args[0] == preload.AllResources && len(result.Requested) == 0 {
		msg = "No resources to refresh"
	}
	return cmdutil.PrintResourceWithSuccess(os.Stdout, result, msg)
}
