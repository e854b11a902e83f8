package schedule

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/pkg/apiclient"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the running scheduler configuration",
	Long: `Change the running scheduler configuration. Only the given flags are
changed.

Disabling stops the timers and keeps the cache. Enabling again restarts
with the initial delay. Durations use Go syntax (500ms, 30s, 5m).

Examples:
  # Refresh every two minutes
  preloadd schedule set --refresh-interval 2m

  # Promote the dashboard
  preloadd schedule set --priority dashboard=critical

  # Stop periodic refreshes but keep the initial preload
  preloadd schedule set --auto-refresh=false`,
	Args: cobra.NoArgs,
	RunE: runSet,
}

func init() {
	registerSetFlags(setCmd.Flags())
}

func registerSetFlags(fs *pflag.FlagSet) {
	fs.Bool("enabled", true, "Enable scheduled preloading")
	fs.Bool("auto-refresh", true, "Refresh periodically after the initial preload")
	fs.String("initial-delay", "", "Delay before the first preload")
	fs.String("refresh-interval", "", "Period between refreshes and staleness interval")
	fs.String("cooldown", "", "Pause between requests within a batch")
	fs.StringToString("priority", nil, "Priority override as key=critical|high|medium|low (repeatable)")
}

func runSet(cmd *cobra.Command, args []string) error {
	patch, err := patchFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	cfg, err := client.UpdateConfig(cmd.Context(), patch)
	if err != nil {
		return fmt.Errorf("failed to update scheduler configuration: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, cfg, ConfigTable(*cfg))
}

// patchFromFlags builds a patch from the flags the user set explicitly.
func patchFromFlags(flags *pflag.FlagSet) (apiclient.ConfigPatch, error) {
	var patch apiclient.ConfigPatch
	changed := false

	if flags.Changed("enabled") {
		v, _ := flags.GetBool("enabled")
		patch.Enabled = &v
		changed = true
	}
	if flags.Changed("auto-refresh") {
		v, _ := flags.GetBool("auto-refresh")
		patch.AutoRefresh = &v
		changed = true
	}
	for name, dst := range map[string]**string{
		"initial-delay":    &patch.InitialDelay,
		"refresh-interval": &patch.RefreshInterval,
		"cooldown":         &patch.Cooldown,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
			changed = true
		}
	}
	if flags.Changed("priority") {
		v, _ := flags.GetStringToString("priority")
		patch.Priorities = v
		changed = true
	}

	if !changed {
		return patch, errors.New("nothing to change: pass at least one flag")
	}
	return patch, nil
}
