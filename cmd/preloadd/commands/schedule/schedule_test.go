package schedule

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/apiclient"
	"github.com/localix/preloadd/pkg/fetch"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("set", pflag.ContinueOnError)
	registerSetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestPatchFromFlags(t *testing.T) {
	patch, err := patchFromFlags(newFlags(t, "--enabled=false", "--refresh-interval", "2m", "--priority", "dashboard=critical"))
	require.NoError(t, err)

	require.NotNil(t, patch.Enabled)
	assert.False(t, *patch.Enabled)
	assert.Nil(t, patch.AutoRefresh)
	require.NotNil(t, patch.RefreshInterval)
	assert.Equal(t, "2m", *patch.RefreshInterval)
	assert.Nil(t, patch.Cooldown)
	assert.Equal(t, map[string]string{"dashboard": "critical"}, patch.Priorities)
}

func TestPatchFromFlags_Empty(t *testing.T) {
	_, err := patchFromFlags(newFlags(t))
	assert.Error(t, err)
}

func TestConfigTableRows(t *testing.T) {
	rows := ConfigTable(apiclient.SchedulerConfig{
		Enabled:         true,
		InitialDelay:    "2s",
		RefreshInterval: "5m0s",
		Cooldown:        "100ms",
		Priorities:      map[string]fetch.Priority{"products": fetch.PriorityLow, "dashboard": fetch.PriorityCritical},
	}).Rows()

	require.Len(t, rows, 7)
	assert.Equal(t, []string{"Enabled", "yes"}, rows[0])
	assert.Equal(t, []string{"Auto refresh", "no"}, rows[1])
	assert.Equal(t, []string{"Priority dashboard", "critical"}, rows[5])
	assert.Equal(t, []string{"Priority products", "low"}, rows[6])
}
