package ui

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// RenderColumns draws the header-to-column mapping of the destination table.
func RenderColumns(w io.Writer, target string, columns []koboload.Column) {
	t := newTable(w)
	t.SetTitle(target)
	t.AppendHeader(table.Row{"#", "Column", "Source header", "Type"})
	for i, c := range columns {
		t.AppendRow(table.Row{i + 1, c.Name, c.SourceHeader, c.Type})
	}
	t.Render()
}
