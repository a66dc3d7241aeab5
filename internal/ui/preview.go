package ui

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// previewCellWidth caps each preview cell so twenty columns stay readable.
const previewCellWidth = 24

// RenderPreview draws the first n records under header. Fields missing from
// a record are left blank. Nothing is drawn when n is zero.
func RenderPreview(w io.Writer, header []string, records []koboload.Record, n int) {
	if n <= 0 || len(header) == 0 {
		return
	}
	if n > len(records) {
		n = len(records)
	}

	t := newTable(w)
	t.SetTitle(fmt.Sprintf("First %d of %d records", n, len(records)))

	hdr := make(table.Row, 0, len(header)+1)
	hdr = append(hdr, "#")
	configs := make([]table.ColumnConfig, 0, len(header))
	for i, h := range header {
		hdr = append(hdr, h)
		configs = append(configs, table.ColumnConfig{
			Number:           i + 2,
			WidthMax:         previewCellWidth,
			WidthMaxEnforcer: text.Trim,
		})
	}
	t.AppendHeader(hdr)
	t.SetColumnConfigs(configs)

	for i, rec := range records[:n] {
		row := make(table.Row, 0, len(header)+1)
		row = append(row, i+1)
		for _, h := range header {
			row = append(row, rec[h])
		}
		t.AppendRow(row)
	}

	t.Render()
}
