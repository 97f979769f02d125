package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zuhrulumam/cropscore/internal/models"
)

var (
	colorAccent = lipgloss.Color("78")
	colorMuted  = lipgloss.Color("245")
	colorWarn   = lipgloss.Color("220")

	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 2)
)

type textRenderer struct {
	opts Options
}

func (r *textRenderer) Render(w io.Writer, report *models.Report) error {
	prec := r.opts.Precision

	_, _ = fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%s  run %s  policy %s",
		report.Source, report.RunID, report.Policy)))
	_, _ = fmt.Fprintln(w)

	scored := report.ScoredTable(prec)
	title := "Scored records"
	hidden := 0
	if r.opts.Preview > 0 && len(scored.Rows) > r.opts.Preview {
		hidden = len(scored.Rows) - r.opts.Preview
		scored.Rows = scored.Rows[:r.opts.Preview]
		title = fmt.Sprintf("Scored records (first %d of %d)", r.opts.Preview, len(report.Scored))
	}
	writeTable(w, title, scored)
	if hidden > 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("... %d more rows", hidden)))
	}
	_, _ = fmt.Fprintln(w)

	writeTable(w, "Recommended crop per field", report.RecommendationTable(prec))
	_, _ = fmt.Fprintln(w)

	if len(report.TopK) > 0 {
		writeTable(w, "Top "+strconv.Itoa(report.K)+" crops per field", report.TopKTable(prec))
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf("Best overall: %s in field %s (score %s)",
		report.Best.Crop, report.Best.Field, models.FormatFloat(report.Best.Score, prec))))

	if len(report.Skipped) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d malformed rows skipped:", len(report.Skipped))))
		for _, s := range report.Skipped {
			_, _ = fmt.Fprintf(w, "  line %d: %s\n", s.Line, describeSkipped(s))
		}
	}

	return nil
}

func writeTable(w io.Writer, title string, data models.Table) {
	_, _ = fmt.Fprintln(w, headingStyle.Render(title))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(toRow(data.Columns))
	for _, row := range data.Rows {
		t.AppendRow(toRow(row))
	}
	t.Render()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func describeSkipped(s models.SkippedRecord) string {
	if s.Column == "" {
		return s.Reason
	}
	return fmt.Sprintf("%s=%q: %s", s.Column, s.Value, s.Reason)
}
