package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/zuhrulumam/cropscore/internal/models"
)

// csvRenderer writes the scored table, the per-field table and the best row
// as CSV blocks separated by a blank line. The top-K table, when present, is a
// fourth block after the best row.
type csvRenderer struct {
	precision int
}

func (r *csvRenderer) Render(w io.Writer, report *models.Report) error {
	tables := []models.Table{
		report.ScoredTable(r.precision),
		report.RecommendationTable(r.precision),
		report.BestTable(r.precision),
	}
	if len(report.TopK) > 0 {
		tables = append(tables, report.TopKTable(r.precision))
	}

	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := WriteCSV(w, t); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes a single table with its header row
func WriteCSV(w io.Writer, t models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

type section struct {
	title string
	table models.Table
}

type markdownRenderer struct {
	precision int
}

func (r *markdownRenderer) Render(w io.Writer, report *models.Report) error {
	sections := []section{
		{"Scored records", report.ScoredTable(r.precision)},
		{"Recommended crop per field", report.RecommendationTable(r.precision)},
	}
	if len(report.TopK) > 0 {
		sections = append(sections, section{"Top " + strconv.Itoa(report.K) + " crops per field", report.TopKTable(r.precision)})
	}
	sections = append(sections, section{"Best overall", report.BestTable(r.precision)})

	_, _ = fmt.Fprintf(w, "# Sustainability report: %s\n", report.Source)

	for _, s := range sections {
		_, _ = fmt.Fprintf(w, "\n## %s\n\n", s.title)

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(toRow(s.table.Columns))
		for _, row := range s.table.Rows {
			t.AppendRow(toRow(row))
		}
		t.RenderMarkdown()
	}

	if len(report.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "\n## Skipped rows\n\n")
		for _, s := range report.Skipped {
			_, _ = fmt.Fprintf(w, "- line %d: %s\n", s.Line, describeSkipped(s))
		}
	}

	return nil
}
