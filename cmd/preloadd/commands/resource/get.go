package resource

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/internal/cli/output"
	"github.com/localix/preloadd/internal/cli/timeutil"
	"github.com/localix/preloadd/pkg/preload"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one resource",
	Long: `Show the state of one resource. JSON and YAML output include the
cached records.

Examples:
  # Show resource state
  preloadd resource get products

  # Dump the cached records
  preloadd resource get products -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// DetailTable renders one resource as field/value pairs.
type DetailTable struct {
	Data    preload.PreloadedData
	Printer *output.Printer
	Now     time.Time
}

// Headers implements TableRenderer.
func (t DetailTable) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (t DetailTable) Rows() [][]string {
	d := t.Data
	items, collection := "-", "-"
	if d.Data != nil {
		items = strconv.Itoa(d.Data.Len())
		collection = cmdutil.BoolToYesNo(d.Data.IsCollection())
	}
	errMsg, errCode := "-", "-"
	if d.Error != nil {
		errMsg = fmt.Sprintf("%s: %s", d.Error.Kind, d.Error.Message)
		if d.Error.Code != 0 {
			errCode = strconv.Itoa(d.Error.Code)
		}
	}

	return [][]string{
		{"Key", d.Key},
		{"Priority", d.Priority.String()},
		{"Status", t.Printer.Status(string(d.Status), d.IsStale)},
		{"Loading", cmdutil.BoolToYesNo(d.IsLoading)},
		{"Items", items},
		{"Collection", collection},
		{"Last updated", timeutil.FormatTime(d.LastUpdated)},
		{"Age", timeutil.FormatAge(d.LastUpdated, t.Now)},
		{"Error", errMsg},
		{"Error code", errCode},
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	printer, err := cmdutil.Printer()
	if err != nil {
		return err
	}

	data, err := client.GetResource(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get resource: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, data, DetailTable{Data: *data, Printer: printer, Now: time.Now()})
}
