package cache

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	"github.com/localix/preloadd/pkg/apiclient"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache counters",
	Long: `Show the cache size, capacity, hit and miss counters and the cached keys.

Examples:
  preloadd cache stats
  preloadd cache stats -o json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

// StatsTable renders cache counters as field/value pairs.
type StatsTable apiclient.CacheStats

// Headers implements TableRenderer.
func (s StatsTable) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (s StatsTable) Rows() [][]string {
	return [][]string{
		{"Size", fmt.Sprintf("%d / %d", s.Size, s.Capacity)},
		{"Hits", strconv.FormatUint(s.Hits, 10)},
		{"Misses", strconv.FormatUint(s.Misses, 10)},
		{"Hit rate", fmt.Sprintf("%.1f%%", s.HitRate*100)},
		{"Evictions", strconv.FormatUint(s.Evictions, 10)},
		{"Keys", cmdutil.EmptyOr(strings.Join(s.Keys, ", "), "-")},
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	stats, err := client.GetCacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get cache stats: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, stats, StatsTable(*stats))
}
