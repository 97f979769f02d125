// Package render writes scoring reports for people and for other programs.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zuhrulumam/cropscore/internal/models"
)

// Format is an output format name
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat resolves a format name. "md" is accepted for markdown and
// "table" for text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Options controls how a report is rendered
type Options struct {
	Format Format

	// Precision is the number of decimals used for scores in tabular formats
	Precision int

	// Preview limits the scored table in text output (0 shows every row)
	Preview int
}

// DefaultOptions returns text output with two-decimal scores and a five-row preview
func DefaultOptions() Options {
	return Options{
		Format:    FormatText,
		Precision: 2,
		Preview:   5,
	}
}

// Renderer writes a report to w
type Renderer interface {
	Render(w io.Writer, report *models.Report) error
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(w io.Writer, report *models.Report) error

// Render calls f(w, report)
func (f RendererFunc) Render(w io.Writer, report *models.Report) error {
	return f(w, report)
}

// New returns the renderer for opts.Format
func New(opts Options) (Renderer, error) {
	if opts.Precision < 0 {
		opts.Precision = 2
	}

	switch opts.Format {
	case FormatText, "":
		return &textRenderer{opts: opts}, nil
	case FormatJSON:
		return RendererFunc(renderJSON), nil
	case FormatYAML:
		return RendererFunc(renderYAML), nil
	case FormatCSV:
		return &csvRenderer{precision: opts.Precision}, nil
	case FormatMarkdown:
		return &markdownRenderer{precision: opts.Precision}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// Write renders report to w with opts
func Write(w io.Writer, report *models.Report, opts Options) error {
	r, err := New(opts)
	if err != nil {
		return err
	}
	return r.Render(w, report)
}

func renderJSON(w io.Writer, report *models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func renderYAML(w io.Writer, report *models.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}
