package resource

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/internal/cli/output"
	"github.com/localix/preloadd/pkg/preload"
)

var watchCmd = &cobra.Command{
	Use:   "watch [key|all]",
	Short: "Follow resource state changes",
	Long: `Print every state change of a resource, or of all resources, until
interrupted. Table output prints one line per change; JSON output prints one
object per line.

Examples:
  # Follow everything
  preloadd resource watch

  # Follow one resource as JSON lines
  preloadd resource watch products -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	key := preload.AllResources
	if len(args) == 1 {
		key = args[0]
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	printer, err := cmdutil.Printer()
	if err != nil {
		return err
	}

	return client.WatchResource(cmd.Context(), key, func(d preload.PreloadedData) error {
		switch printer.Format() {
		case output.FormatJSON:
			return output.PrintJSONCompact(os.Stdout, d)
		case output.FormatYAML:
			return output.PrintYAMLDocument(os.Stdout, d)
		default:
			printer.Println(watchLine(d, printer, time.Now()))
			return nil
		}
	})
}

// watchLine formats one state change, e.g.
// "15:04:05  products  success  12 items".
func watchLine(d preload.PreloadedData, printer *output.Printer, now time.Time) string {
	detail := ""
	switch {
	case d.Error != nil:
		detail = fmt.Sprintf("%s: %s", d.Error.Kind, d.Error.Message)
	case d.Data != nil:
		detail = strconv.Itoa(d.Data.Len()) + " items"
	}
	return fmt.Sprintf("%s  %-16s %-10s %s",
		now.Format("15:04:05"), d.Key, printer.Status(string(d.Status), d.IsStale), detail)
}
