package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resourceRows [][]string

func (r resourceRows) Headers() []string { return []string{"key", "status"} }
func (r resourceRows) Rows() [][]string  { return r }

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	err := PrintTable(&buf, resourceRows{
		{"products", "success"},
		{"categories", colorRed + "error" + colorReset},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "products")
	assert.Contains(t, lines[2], "error")

	// Colors do not shift the column: both status cells start at the same offset.
	plain := strings.Index(lines[1], "success")
	colored := strings.Index(lines[2], colorRed)
	assert.Equal(t, plain, colored)
}

func TestPrintDetails(t *testing.T) {
	d := &Details{}
	d.Add("Status", "running").Add("PID", "").Add("Resources", "3")
	assert.Equal(t, 3, d.Len())

	var buf bytes.Buffer
	require.NoError(t, PrintDetails(&buf, d))

	out := buf.String()
	assert.Contains(t, out, "Status:")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "PID")
	assert.Contains(t, out, "-")
	assert.Equal(t, 3, strings.Count(out, ":"))
}

func TestPrintDetailsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintDetails(&buf, &Details{}))
	assert.Empty(t, buf.String())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"connection refused by upstream", 15, "connection r..."},
		{"abcdef", 2, "ab"},
		{"categorías y más", 12, "categoría..."},
		{"anything", 0, "anything"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max), tt.in)
	}
}
