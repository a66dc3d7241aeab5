package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// RenderSummary draws the outcome of a run: source status, parse counts and,
// unless the run was dry, the load counts and the first failing rows.
func RenderSummary(w io.Writer, s *koboload.RunSummary) {
	if s == nil {
		return
	}

	t := newTable(w)
	t.SetTitle("Run " + s.RunID)
	t.AppendRow(table.Row{"Target", s.Target})
	t.AppendRow(table.Row{"HTTP status", s.StatusCode})
	t.AppendRow(table.Row{"Bytes read", s.BytesRead})
	if s.Checksum != "" {
		t.AppendRow(table.Row{"Export sha256", shortChecksum(s.Checksum)})
	}

	if p := s.Parse; p != nil {
		t.AppendRow(table.Row{"Records parsed", len(p.Records)})
		t.AppendRow(table.Row{"Lines skipped", skippedText(p)})
	}

	switch {
	case s.DryRun:
		t.AppendRow(table.Row{"Load", "skipped (dry run)"})
	case s.Load != nil:
		l := s.Load
		t.AppendRow(table.Row{"Mode", l.Mode.String()})
		t.AppendRow(table.Row{"Rows attempted", l.Attempted})
		t.AppendRow(table.Row{"Rows inserted", l.Inserted})
		t.AppendRow(table.Row{"Rows failed", l.Failed()})
		t.AppendRow(table.Row{"Committed", l.Committed})
	}

	t.AppendRow(table.Row{"Duration", s.Duration.Round(time.Millisecond).String()})
	t.Render()

	if s.Load != nil && len(s.Load.Failures) > 0 {
		renderFailures(w, s.Load.Failures)
	}
}

func shortChecksum(sum string) string {
	if len(sum) > 16 {
		return sum[:16]
	}
	return sum
}

func skippedText(p *koboload.ParseResult) string {
	if p.Skipped == 0 {
		return "0"
	}
	lines := make([]string, 0, len(p.SkippedLines))
	for i, n := range p.SkippedLines {
		if i == koboload.MaxFailuresShown {
			lines = append(lines, "...")
			break
		}
		lines = append(lines, fmt.Sprint(n))
	}
	return fmt.Sprintf("%d (lines %s)", p.Skipped, strings.Join(lines, ", "))
}

func renderFailures(w io.Writer, failures []koboload.RowOutcome) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%d failed rows", len(failures)))
	t.AppendHeader(table.Row{"Record", "Reason", "Error"})
	for i, f := range failures {
		if i == koboload.MaxFailuresShown {
			t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d more not shown", len(failures)-i)})
			break
		}
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		t.AppendRow(table.Row{f.Index + 1, f.Reason, msg})
	}
	t.Render()
}
