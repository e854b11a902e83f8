package output

import (
	"io"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	// Headers returns the column headers for the table.
	Headers() []string
	// Rows returns the data rows for the table.
	Rows() [][]string
}

// PrintTable writes data as a borderless, left-aligned table. Cells may
// carry ANSI colors; tablewriter ignores them when measuring widths.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := newBorderless(w)
	table.SetHeader(data.Headers())
	table.SetAutoFormatHeaders(true)
	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// Details is an ordered list of labelled values, rendered as "Label: value"
// lines with the values aligned.
type Details struct {
	pairs [][]string
}

// Add appends a labelled value. Empty values render as "-".
func (d *Details) Add(label, value string) *Details {
	if value == "" {
		value = "-"
	}
	d.pairs = append(d.pairs, []string{label + ":", value})
	return d
}

// Len returns the number of lines.
func (d *Details) Len() int {
	return len(d.pairs)
}

// PrintDetails writes d with one label per line.
func PrintDetails(w io.Writer, d *Details) error {
	if d.Len() == 0 {
		return nil
	}
	table := newBorderless(w)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(d.pairs)
	table.Render()
	return nil
}

// Truncate shortens s to at most max runes, marking the cut with "...".
// Error messages from backends can be arbitrarily long; list views cap them.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

func newBorderless(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}
