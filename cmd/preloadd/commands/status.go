package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/cmd/preloadd/cmdutil"
	resourcecmd "github.com/localix/preloadd/cmd/preloadd/commands/resource"
	"github.com/localix/preloadd/internal/cli/output"
	"github.com/localix/preloadd/pkg/apiclient"
)

var statusPidFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the status of the preloadd daemon: whether it runs, whether it
is ready, and the state of every resource.

Examples:
  # Check status
  preloadd status

  # Check a daemon on another host
  preloadd status --server http://cache-01:8080

  # Output as JSON
  preloadd status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/preloadd/preloadd.pid)")
}

// DaemonStatus represents the daemon status information.
type DaemonStatus struct {
	Running   bool                 `json:"running" yaml:"running"`
	PID       int                  `json:"pid,omitempty" yaml:"pid,omitempty"`
	Ready     bool                 `json:"ready" yaml:"ready"`
	Message   string               `json:"message" yaml:"message"`
	Readiness *apiclient.Readiness `json:"readiness,omitempty" yaml:"readiness,omitempty"`
	Resources []apiclient.Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer()
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	status := DaemonStatus{Message: "Daemon is not running"}
	if pid, running := isProcessRunning(pidPath); running {
		status.Running = true
		status.PID = pid
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}
	collectStatus(cmd.Context(), client, &status)

	if handled, err := output.PrintStructured(os.Stdout, printer.Format(), status); handled {
		return err
	}
	return printStatusTable(os.Stdout, printer, status)
}

// collectStatus fills status from the readiness probe and, when the daemon
// answers, the resource list.
func collectStatus(ctx context.Context, client *apiclient.Client, status *DaemonStatus) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ready, err := client.Readiness(ctx)
	if err != nil {
		if status.Running {
			status.Message = "Daemon process exists but the API does not answer"
		}
		return
	}

	status.Running = true
	status.Readiness = ready
	status.Ready = ready.Ready
	if !ready.Ready {
		status.Message = fmt.Sprintf("Daemon is running but not ready: %s", ready.Error)
		return
	}
	status.Message = "Daemon is running and ready"

	resources, err := client.ListResources(ctx)
	if err != nil {
		status.Message = fmt.Sprintf("Daemon is ready but resources are unavailable: %v", err)
		return
	}
	status.Resources = resources
}

func printStatusTable(w io.Writer, printer *output.Printer, status DaemonStatus) error {
	state := printer.Status("error", false)
	switch {
	case status.Running && status.Ready:
		state = printer.Status("success", false)
	case status.Running:
		state = printer.Status("loading", false)
	}

	details := &output.Details{}
	details.Add("Status", state).Add("Message", status.Message)
	if status.PID != 0 {
		details.Add("PID", strconv.Itoa(status.PID))
	}
	if r := status.Readiness; r != nil && r.Ready {
		details.Add("Resources", fmt.Sprintf("%d (%d loaded, %d loading, %d failed)", r.Resources, r.Loaded, r.Loading, r.Failed))
		details.Add("Cached", strconv.Itoa(r.Cached))
	}

	_, _ = fmt.Fprintln(w)
	if err := output.PrintDetails(w, details); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)

	if len(status.Resources) == 0 {
		return nil
	}
	return output.PrintTable(w, resourcecmd.NewTable(status.Resources, printer))
}
