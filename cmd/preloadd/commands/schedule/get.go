package schedule

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the running scheduler configuration",
	Args:  cobra.NoArgs,
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	cfg, err := client.GetConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get scheduler configuration: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, cfg, ConfigTable(*cfg))
}
