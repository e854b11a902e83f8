// Package schedule implements the commands that read and change the
// running scheduler configuration.
package schedule

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/pkg/apiclient"
)

// Cmd is the parent command for scheduler settings.
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show or change preload timing",
	Long: `Show or change the preload timing of a running daemon.

Changes apply immediately and last until the daemon restarts or the
configuration file is edited. Edit the file to make them permanent.

Examples:
  # Show the running configuration
  preloadd schedule get

  # Refresh every two minutes
  preloadd schedule set --refresh-interval 2m

  # Pause scheduled preloading without dropping the cache
  preloadd schedule set --enabled=false`,
}

func init() {
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(setCmd)
}

// ConfigTable renders a scheduler configuration as field/value pairs.
type ConfigTable apiclient.SchedulerConfig

// Headers implements TableRenderer.
func (c ConfigTable) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (c ConfigTable) Rows() [][]string {
	rows := [][]string{
		{"Enabled", yesNo(c.Enabled)},
		{"Auto refresh", yesNo(c.AutoRefresh)},
		{"Initial delay", c.InitialDelay},
		{"Refresh interval", c.RefreshInterval},
		{"Cooldown", c.Cooldown},
	}

	keys := make([]string, 0, len(c.Priorities))
	for k := range c.Priorities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{"Priority " + k, c.Priorities[k].String()})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
