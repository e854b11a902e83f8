package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// PrintJSON writes data as indented JSON.
func PrintJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintJSONCompact writes data as a single JSON line, one per call, which
// makes a sequence of calls a JSON Lines stream.
func PrintJSONCompact(w io.Writer, data any) error {
	return json.NewEncoder(w).Encode(data)
}

// PrintYAML writes data as a YAML document.
func PrintYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// PrintYAMLDocument writes data as one document of a YAML stream, preceded
// by a "---" separator so consecutive calls stay parseable.
func PrintYAMLDocument(w io.Writer, data any) error {
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	return PrintYAML(w, data)
}

// PrintStructured writes data as JSON or YAML according to f. It reports
// false, and writes nothing, for the table format so the caller can render
// its own view.
func PrintStructured(w io.Writer, f Format, data any) (bool, error) {
	switch f {
	case FormatJSON:
		return true, PrintJSON(w, data)
	case FormatYAML:
		return true, PrintYAML(w, data)
	default:
		return false, nil
	}
}
