// Package cache implements the data cache commands.
package cache

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for the data cache.
var Cmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the data cache",
	Long: `Inspect and manage the in-memory data cache of a running daemon.

Examples:
  # Show cache counters
  preloadd cache stats

  # Drop expired entries
  preloadd cache purge

  # Drop every entry (asks for confirmation)
  preloadd cache clear`,
}

func init() {
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(purgeCmd)
	Cmd.AddCommand(clearCmd)
}
