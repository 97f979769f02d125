// Package export writes scoring reports as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zuhrulumam/cropscore/internal/models"
)

// Sheet names in the workbook, in tab order
const (
	SheetScores          = "Scores"
	SheetRecommendations = "Recommendations"
	SheetTopK            = "TopK"
	SheetBest            = "Best"
	SheetSkipped         = "Skipped"
)

const columnWidth = 18

// Workbook builds the workbook for report. The caller must Close it.
func Workbook(report *models.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetScores); err != nil {
		_ = f.Close()
		return nil, err
	}

	w := &sheetWriter{f: f}

	w.scores(report)
	w.recommendations(SheetRecommendations, report.PerField, false)
	if len(report.TopK) > 0 {
		w.recommendations(SheetTopK, report.TopK, true)
	}
	w.best(report.Best)
	if len(report.Skipped) > 0 {
		w.skipped(report.Skipped)
	}

	if w.err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("build workbook: %w", w.err)
	}

	return f, nil
}

// Write streams the workbook for report to out
func Write(out io.Writer, report *models.Report) error {
	f, err := Workbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return f.Write(out)
}

// Save writes the workbook for report to path
func Save(report *models.Report, path string) error {
	f, err := Workbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so the sheet builders stay linear
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) ensureSheet(name string) {
	if w.err != nil {
		return
	}
	if idx, _ := w.f.GetSheetIndex(name); idx >= 0 {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *sheetWriter) set(sheet string, col, row int, value any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(sheet, cell, value)
}

func (w *sheetWriter) header(sheet string, columns []string) {
	w.ensureSheet(sheet)
	for i, name := range columns {
		w.set(sheet, i+1, 1, name)
	}
	if w.err != nil || len(columns) == 0 {
		return
	}

	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetColWidth(sheet, "A", last, columnWidth)
}

func (w *sheetWriter) scores(report *models.Report) {
	columns := append(append([]string{}, report.Headers...), models.ColumnScore)
	w.header(SheetScores, columns)

	for i, rec := range report.Scored {
		row := i + 2
		for col := range report.Headers {
			value := ""
			if rec.Raw != nil {
				value = rec.Raw.GetField(col)
			}
			w.set(SheetScores, col+1, row, value)
		}
		w.set(SheetScores, len(columns), row, rec.Score)
	}
}

func (w *sheetWriter) recommendations(sheet string, recs []models.Recommendation, ranked bool) {
	columns := []string{models.ColumnField}
	if ranked {
		columns = append(columns, models.ColumnRank)
	}
	columns = append(columns, models.ColumnCrop, models.ColumnYield, models.ColumnScore)
	w.header(sheet, columns)

	for i, rec := range recs {
		row := i + 2
		values := []any{rec.Field}
		if ranked {
			values = append(values, rec.Rank)
		}
		values = append(values, rec.Crop, rec.Yield, rec.Score)

		for col, v := range values {
			w.set(sheet, col+1, row, v)
		}
	}
}

func (w *sheetWriter) best(best models.BestOverall) {
	w.header(SheetBest, []string{models.ColumnField, models.ColumnCrop, models.ColumnScore})
	w.set(SheetBest, 1, 2, best.Field)
	w.set(SheetBest, 2, 2, best.Crop)
	w.set(SheetBest, 3, 2, best.Score)
}

func (w *sheetWriter) skipped(skipped []models.SkippedRecord) {
	w.header(SheetSkipped, []string{"Line", "Column", "Value", "Reason"})
	for i, s := range skipped {
		row := i + 2
		w.set(SheetSkipped, 1, row, s.Line)
		w.set(SheetSkipped, 2, row, s.Column)
		w.set(SheetSkipped, 3, row, s.Value)
		w.set(SheetSkipped, 4, row, s.Reason)
	}
}
