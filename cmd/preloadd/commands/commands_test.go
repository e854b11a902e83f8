package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/internal/cli/output"
	"github.com/localix/preloadd/pkg/apiclient"
)

func TestRootRegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"start", "stop", "status", "preload", "resource", "cache", "schedule", "config", "version", "completion"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestVersionShort(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		versionShort = false
	})

	versionShort = true
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, Version+"\n", buf.String())
}

func TestReadPidFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.pid")
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0644))
	pid, err := readPidFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	bad := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0644))
	_, err = readPidFile(bad)
	assert.Error(t, err)

	_, err = readPidFile(filepath.Join(dir, "missing.pid"))
	assert.Error(t, err)
}

func TestPrintStatusTable(t *testing.T) {
	printer := output.NewPrinter(&bytes.Buffer{}, output.FormatTable, false)

	var buf bytes.Buffer
	err := printStatusTable(&buf, printer, DaemonStatus{
		Running: true,
		PID:     99,
		Ready:   true,
		Message: "Daemon is running and ready",
		Readiness: &apiclient.Readiness{
			Ready:     true,
			Resources: 3,
			Loaded:    2,
			Loading:   1,
			Cached:    2,
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "success")
	assert.Regexp(t, `PID:\s+99`, out)
	assert.Contains(t, out, "3 (2 loaded, 1 loading, 0 failed)")
	assert.False(t, strings.Contains(out, "KEY"), "no resource table without resources")
}

func TestPrintStatusTableNotRunning(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatusTable(&buf, output.NewPrinter(&bytes.Buffer{}, output.FormatTable, false), DaemonStatus{Message: "Daemon is not running"}))

	out := buf.String()
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "Daemon is not running")
	assert.NotContains(t, out, "PID:")
}
