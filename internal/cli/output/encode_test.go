package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Key   string `json:"key" yaml:"key"`
	Items int    `json:"items" yaml:"items"`
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, []sample{{Key: "products", Items: 12}}))

	out := buf.String()
	assert.Contains(t, out, `"key": "products"`)
	assert.Contains(t, out, `"items": 12`)
}

func TestPrintJSONCompactLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSONCompact(&buf, sample{Key: "products", Items: 1}))
	require.NoError(t, PrintJSONCompact(&buf, sample{Key: "categories", Items: 2}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"key":"products","items":1}`, lines[0])
	assert.Equal(t, `{"key":"categories","items":2}`, lines[1])
}

func TestPrintYAMLDocumentStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAMLDocument(&buf, sample{Key: "products", Items: 1}))
	require.NoError(t, PrintYAMLDocument(&buf, sample{Key: "dashboard", Items: 0}))

	dec := yaml.NewDecoder(&buf)
	var got []sample
	for {
		var s sample
		if err := dec.Decode(&s); err != nil {
			break
		}
		got = append(got, s)
	}
	assert.Equal(t, []sample{{Key: "products", Items: 1}, {Key: "dashboard", Items: 0}}, got)
}

func TestPrintStructured(t *testing.T) {
	tests := []struct {
		format  Format
		handled bool
		want    string
	}{
		{FormatJSON, true, `"key": "products"`},
		{FormatYAML, true, "key: products"},
		{FormatTable, false, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			handled, err := PrintStructured(&buf, tt.format, sample{Key: "products"})
			require.NoError(t, err)
			assert.Equal(t, tt.handled, handled)
			if tt.handled {
				assert.Contains(t, buf.String(), tt.want)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
