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
	"github.com/localix/preloadd/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources",
	Long: `List every resource in execution order (priority, then key).

Examples:
  # List resources as table
  preloadd resource list

  # List as JSON
  preloadd resource list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// maxErrorWidth caps the ERROR column; `resource get` shows the full message.
const maxErrorWidth = 60

// Table renders resource summaries. Status cells are colored by printer.
type Table struct {
	Resources []apiclient.Resource
	Printer   *output.Printer
	Now       time.Time
}

// NewTable creates a table for resources, rendered relative to now.
func NewTable(resources []apiclient.Resource, printer *output.Printer) Table {
	return Table{Resources: resources, Printer: printer, Now: time.Now()}
}

// Headers implements TableRenderer.
func (t Table) Headers() []string {
	return []string{"KEY", "PRIORITY", "STATUS", "ITEMS", "UPDATED", "ERROR"}
}

// Rows implements TableRenderer.
func (t Table) Rows() [][]string {
	rows := make([][]string, 0, len(t.Resources))
	for _, r := range t.Resources {
		errMsg := "-"
		if r.Error != nil {
			errMsg = output.Truncate(fmt.Sprintf("%s: %s", r.Error.Kind, r.Error.Message), maxErrorWidth)
		}
		rows = append(rows, []string{
			r.Key,
			r.Priority.String(),
			t.Printer.Status(string(r.Status), r.IsStale),
			strconv.Itoa(r.Items),
			timeutil.FormatAge(r.LastUpdated, t.Now),
			errMsg,
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	printer, err := cmdutil.Printer()
	if err != nil {
		return err
	}

	resources, err := client.ListResources(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list resources: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, resources, len(resources) == 0, "No resources registered.", NewTable(resources, printer))
}
