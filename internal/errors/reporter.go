package errors

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Reporter formats and reports collected errors
type Reporter struct {
	collector *Collector
	writer    io.Writer
}

// NewReporter creates a new error reporter
func NewReporter(collector *Collector, writer io.Writer) *Reporter {
	return &Reporter{
		collector: collector,
		writer:    writer,
	}
}

// PrintSummary prints a summary of all errors
func (r *Reporter) PrintSummary() {
	summary := r.collector.Summary()

	fmt.Fprintf(r.writer, "\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Error Summary\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Total Errors:      %d\n", summary.TotalErrors)
	fmt.Fprintf(r.writer, "Total Processed:   %d\n", summary.TotalProcessed)
	fmt.Fprintf(r.writer, "Error Rate:        %.2f%%\n", summary.ErrorRate*100)
	fmt.Fprintf(r.writer, "\n")

	if len(summary.ByCategory) > 0 {
		fmt.Fprintf(r.writer, "Errors by Category:\n")
		for _, category := range sortedKeys(summary.ByCategory) {
			fmt.Fprintf(r.writer, "  %-15s: %d\n", category, summary.ByCategory[category])
		}
		fmt.Fprintf(r.writer, "\n")
	}

	if len(summary.ByKind) > 0 {
		fmt.Fprintf(r.writer, "Errors by Kind:\n")
		for _, kind := range sortedKeys(summary.ByKind) {
			fmt.Fprintf(r.writer, "  %-15s: %d\n", kind, summary.ByKind[kind])
		}
		fmt.Fprintf(r.writer, "\n")
	}

	if len(summary.ByColumn) > 0 {
		fmt.Fprintf(r.writer, "Malformed Values by Column:\n")
		for _, column := range sortedKeys(summary.ByColumn) {
			fmt.Fprintf(r.writer, "  %-15s: %d\n", column, summary.ByColumn[column])
		}
		fmt.Fprintf(r.writer, "\n")
	}

	fmt.Fprintf(r.writer, "========================================\n")
}

// PrintDetailed prints detailed error information
func (r *Reporter) PrintDetailed(maxErrors int) {
	entries := r.collector.Errors()

	if len(entries) == 0 {
		fmt.Fprintf(r.writer, "No errors to report.\n")
		return
	}

	fmt.Fprintf(r.writer, "\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Detailed Error Report\n")
	fmt.Fprintf(r.writer, "========================================\n")

	count := len(entries)
	if maxErrors > 0 && maxErrors < count {
		count = maxErrors
	}

	for i := 0; i < count; i++ {
		entry := entries[i]

		fmt.Fprintf(r.writer, "\nError #%d:\n", i+1)
		fmt.Fprintf(r.writer, "  Time:      %s\n", entry.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(r.writer, "  Category:  %s\n", entry.Category)
		fmt.Fprintf(r.writer, "  Kind:      %s\n", entry.Kind)

		if entry.Source != "" {
			fmt.Fprintf(r.writer, "  Source:    %s\n", entry.Source)
		}
		if entry.Line > 0 {
			fmt.Fprintf(r.writer, "  Line:      %d\n", entry.Line)
		}
		if entry.Column != "" {
			fmt.Fprintf(r.writer, "  Column:    %s\n", entry.Column)
		}

		fmt.Fprintf(r.writer, "  Error:     %v\n", entry.Error)
	}

	if maxErrors > 0 && len(entries) > maxErrors {
		fmt.Fprintf(r.writer, "\n... and %d more errors\n", len(entries)-maxErrors)
	}

	fmt.Fprintf(r.writer, "\n========================================\n")
}

// PrintTopErrors prints the most common errors
func (r *Reporter) PrintTopErrors(topN int) {
	entries := r.collector.Errors()

	if len(entries) == 0 {
		return
	}

	errorCounts := make(map[string]int)
	errorExamples := make(map[string]ErrorEntry)

	for _, entry := range entries {
		msg := entry.Error.Error()
		errorCounts[msg]++
		if _, exists := errorExamples[msg]; !exists {
			errorExamples[msg] = entry
		}
	}

	type errorCount struct {
		message string
		count   int
	}

	var sorted []errorCount
	for msg, count := range errorCounts {
		sorted = append(sorted, errorCount{msg, count})
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].message < sorted[j].message
	})

	if topN > len(sorted) {
		topN = len(sorted)
	}

	fmt.Fprintf(r.writer, "\n")
	fmt.Fprintf(r.writer, "========================================\n")
	fmt.Fprintf(r.writer, "Top %d Most Common Errors\n", topN)
	fmt.Fprintf(r.writer, "========================================\n")

	for i := 0; i < topN; i++ {
		item := sorted[i]
		example := errorExamples[item.message]

		fmt.Fprintf(r.writer, "\n%d. (%d occurrences)\n", i+1, item.count)
		fmt.Fprintf(r.writer, "   Kind:     %s\n", example.Kind)
		fmt.Fprintf(r.writer, "   Message:  %s\n", truncateString(item.message, 100))
	}

	fmt.Fprintf(r.writer, "\n========================================\n")
}

// Print picks the detailed report for a handful of errors and the grouped one otherwise
func (r *Reporter) Print() {
	if !r.collector.HasErrors() {
		return
	}

	r.PrintSummary()
	if r.collector.Count() > 5 {
		r.PrintTopErrors(5)
	} else {
		r.PrintDetailed(10)
	}
}

// truncateString truncates a string to maxLen
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// FormatError formats a single error entry
func FormatError(entry ErrorEntry) string {
	var parts []string

	switch {
	case entry.Source != "" && entry.Line > 0:
		parts = append(parts, fmt.Sprintf("%s:%d", entry.Source, entry.Line))
	case entry.Source != "":
		parts = append(parts, entry.Source)
	}

	switch {
	case entry.Kind != "" && entry.Kind != KindInternal:
		parts = append(parts, fmt.Sprintf("[%s]", entry.Kind))
	default:
		parts = append(parts, fmt.Sprintf("[%s]", entry.Category))
	}
	parts = append(parts, entry.Error.Error())

	return strings.Join(parts, " ")
}
