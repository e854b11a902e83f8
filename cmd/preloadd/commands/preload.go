package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/pkg/apiclient"
	"github.com/localix/preloadd/pkg/fetch"
)

var preloadPriority string

var preloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Run a preload batch now",
	Long: `Request every resource in priority order, as a scheduled batch would.
Resources whose cached value is still fresh are not fetched again.

The batch is skipped as a whole when any resource is loading or another
batch is running.

Examples:
  # Preload with the configured priorities
  preloadd preload

  # Preload everything at high priority
  preloadd preload --priority high`,
	Args: cobra.NoArgs,
	RunE: runPreload,
}

func init() {
	preloadCmd.Flags().StringVar(&preloadPriority, "priority", "", "Override every resource's priority for this batch (critical|high|medium|low)")
}

func runPreload(cmd *cobra.Command, args []string) error {
	var override *fetch.Priority
	if preloadPriority != "" {
		p, err := fetch.ParsePriority(preloadPriority)
		if err != nil {
			return err
		}
		override = &p
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	result, err := client.PreloadAll(cmd.Context(), override)
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.HasType(apiclient.ProblemPreloadSkipped) {
		fmt.Println("Preload skipped: a fetch is already in progress")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to preload: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, result,
		fmt.Sprintf("Preload requested: %s", cmdutil.EmptyOr(strings.Join(result.Requested, ", "), "nothing")))
}
