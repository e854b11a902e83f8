// Package resource implements the resource inspection and refresh commands.
package resource

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for resource management.
var Cmd = &cobra.Command{
	Use:     "resource",
	Aliases: []string{"resources", "res"},
	Short:   "Inspect and refresh preloaded resources",
	Long: `Inspect and refresh the resources a running daemon preloads.

Examples:
  # List resources with their status
  preloadd resource list

  # Show a resource including its cached data
  preloadd resource get products -o json

  # Force a refresh of one resource, or of all of them
  preloadd resource refresh products
  preloadd resource refresh all

  # Cancel an in-flight fetch
  preloadd resource cancel products

  # Follow state changes
  preloadd resource watch all`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(refreshCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(watchCmd)
}
