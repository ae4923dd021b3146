package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"subtrans/internal/stats"
)

// RenderSummary formats a run snapshot as a rounded two-column table.
func RenderSummary(snap stats.Snapshot) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	tw.AppendRows([]table.Row{
		{"Files scanned", snap.FilesScanned},
		{"Files skipped", snap.FilesSkipped},
		{"Files translated", snap.FilesTranslated},
		{"Files failed", snap.FilesFailed},
		{"Cues translated", snap.CuesTranslated},
		{"Retries", snap.Retries},
		{"Elapsed", FormatDuration(snap.Elapsed)},
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

// FormatDuration renders a duration at human-scale precision.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
