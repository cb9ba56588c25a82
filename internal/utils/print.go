package utils

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

/**
 * Print rows as a table
 * @param {io.Writer} w - Output
 * @param {table.Row} header - Column titles
 * @param {[]table.Row} rows - Table rows
 */
func PrintTable(w io.Writer, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

// Colorize paints s green when ok, red otherwise.
func Colorize(s string, ok bool) string {
	if ok {
		return text.FgGreen.Sprint(s)
	}
	return text.FgRed.Sprint(s)
}
