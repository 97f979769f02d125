// Package chart draws the sustainability score of every scored row as a bar chart.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/zuhrulumam/cropscore/internal/models"
)

var (
	barColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bestColor = color.RGBA{R: 46, G: 139, B: 87, A: 255}
)

// Options controls chart size and title
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions sizes the chart for roughly a dozen bars
func DefaultOptions() Options {
	return Options{
		Title:  "Sustainability Score by Crop (Field)",
		Width:  12 * vg.Inch,
		Height: 6 * vg.Inch,
	}
}

// FormatFor returns the image format implied by path's extension
func FormatFor(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "png", "svg":
		return ext, nil
	case "":
		return "png", nil
	default:
		return "", fmt.Errorf("unsupported chart format %q (want png or svg)", ext)
	}
}

// Label is the bar label for a scored row
func Label(rec models.ScoredRecord) string {
	return fmt.Sprintf("%s (%s)", rec.Crop, rec.Field)
}

// New builds the bar chart for report. The best-overall row is drawn in a
// second colour.
func New(report *models.Report, opts Options) (*plot.Plot, error) {
	if report == nil || len(report.Scored) == 0 {
		return nil, fmt.Errorf("chart: no scored records")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Crop (Field)"
	p.Y.Label.Text = models.ColumnScore

	n := len(report.Scored)
	values := make(plotter.Values, n)
	best := make(plotter.Values, n)
	labels := make([]string, n)
	maxScore := 0.0

	for i, rec := range report.Scored {
		labels[i] = Label(rec)
		if rec.Line == report.Best.Line {
			best[i] = rec.Score
		} else {
			values[i] = rec.Score
		}
		maxScore = math.Max(maxScore, rec.Score)
	}

	width := vg.Points(20)

	bars, err := plotter.NewBarChart(values, width)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	bestBars, err := plotter.NewBarChart(best, width)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	bestBars.Color = bestColor
	bestBars.LineStyle.Width = vg.Length(0)

	p.Add(bars, bestBars)
	p.Legend.Add("score", bars)
	p.Legend.Add("best overall", bestBars)
	p.Legend.Top = true

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight

	p.Y.Min = 0
	p.Y.Max = maxScore * 1.15
	if p.Y.Max == 0 {
		p.Y.Max = 1
	}

	return p, nil
}

// Write renders report's chart in format ("png" or "svg") to w
func Write(w io.Writer, report *models.Report, format string, opts Options) error {
	p, err := New(report, opts)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, format)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}

	_, err = wt.WriteTo(w)
	return err
}

// Save writes report's chart to path, choosing the format from the extension
func Save(report *models.Report, path string, opts Options) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}

	if err := Write(f, report, format, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
