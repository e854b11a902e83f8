package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errProcessDone is returned by stopProcess when the process already exited.
var errProcessDone = errors.New("process already exited")

var (
	stopPidFile string
	stopForce   bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the preloadd daemon",
	Long: `Stop a running preloadd daemon.

By default the daemon is asked to shut down gracefully, cancelling in-flight
fetches. Use --force for immediate termination.

Examples:
  # Stop daemon (uses default PID file)
  preloadd stop

  # Stop daemon using custom PID file
  preloadd stop --pid-file /var/run/preloadd.pid

  # Force stop
  preloadd stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/preloadd/preloadd.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill immediately instead of shutting down gracefully")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pid, err := readPidFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PID file not found: %s\n\nIs the daemon running?", pidPath)
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := stopProcess(process, pid, stopForce); err != nil {
		if errors.Is(err, errProcessDone) {
			fmt.Println("Daemon already stopped")
			_ = os.Remove(pidPath)
			return nil
		}
		return err
	}

	if stopForce {
		_ = os.Remove(pidPath)
		fmt.Println("Daemon terminated")
	} else {
		fmt.Println("Shutdown signal sent. The daemon will stop gracefully.")
	}
	return nil
}
