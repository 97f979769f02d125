package models

import (
	"time"
)

// Record represents a single raw CSV row with its metadata
type Record struct {
	// LineNumber is the original line number in the CSV input (1-indexed, header is line 1)
	LineNumber int

	// FileName is the source name (file base name or upload name)
	FileName string

	// Data contains the raw CSV fields
	Data []string

	// Headers contains the column names shared by every row of the dataset
	Headers []string

	// ReadAt is when this record was read
	ReadAt time.Time
}

// NewRecord creates a new Record instance
func NewRecord(lineNumber int, fileName string, data []string, headers []string) *Record {
	return &Record{
		LineNumber: lineNumber,
		FileName:   fileName,
		Data:       data,
		Headers:    headers,
		ReadAt:     time.Now(),
	}
}

// GetField returns the value at the specified column index
// Returns empty string if index is out of bounds
func (r *Record) GetField(index int) string {
	if index < 0 || index >= len(r.Data) {
		return ""
	}
	return r.Data[index]
}

// Lookup returns the value for the named column and whether the row
// actually has a cell at that position.
func (r *Record) Lookup(columnName string) (string, bool) {
	for i, header := range r.Headers {
		if header == columnName {
			if i >= len(r.Data) {
				return "", false
			}
			return r.Data[i], true
		}
	}
	return "", false
}

// Dataset is one parsed tabular input: a header row and its records in
// input order.
type Dataset struct {
	// Source names where the dataset came from (file name or upload name)
	Source string

	// Headers are the column names exactly as they appear in the input
	Headers []string

	// Records are the data rows in input order
	Records []*Record
}

// Len returns the number of data rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
