package resource

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/pkg/apiclient"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <key>",
	Short: "Cancel an in-flight fetch",
	Long: `Cancel the in-flight fetch of a resource. The resource returns to the
state it had before the fetch started.

Examples:
  preloadd resource cancel products`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	err = client.CancelFetch(cmd.Context(), args[0])
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.HasType(apiclient.ProblemNotLoading) {
		fmt.Printf("%s is not loading, nothing to cancel\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cancel fetch: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Fetch of %s cancelled", args[0]))
	return nil
}
