package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions
var (
	// ErrInvalidCSV indicates the CSV input could not be parsed
	ErrInvalidCSV = errors.New("invalid CSV format")

	// ErrInvalidHeader indicates the header row is unusable (blank or duplicate names)
	ErrInvalidHeader = errors.New("invalid header")

	// ErrMissingColumns is matched by every *MissingColumnError
	ErrMissingColumns = errors.New("missing required columns")

	// ErrMalformedData is matched by every *MalformedDataError
	ErrMalformedData = errors.New("malformed data")

	// ErrEmptyDataset is matched by every *EmptyDatasetError
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrFileNotFound indicates the file doesn't exist
	ErrFileNotFound = errors.New("file not found")

	// ErrEmptyFile indicates the file has no bytes at all
	ErrEmptyFile = errors.New("empty file")

	// ErrSkipThresholdExceeded indicates too many rows were malformed under the skip policy
	ErrSkipThresholdExceeded = errors.New("malformed row threshold exceeded")

	// ErrBatchAborted indicates a batch stopped early. It is not a dataset
	// error, so the underlying file error is kept only as text.
	ErrBatchAborted = errors.New("batch aborted")

	// ErrUploadTooLarge indicates an upload exceeded the configured size limit
	ErrUploadTooLarge = errors.New("upload too large")
)

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// MissingColumnError reports required columns absent from the header
type MissingColumnError struct {
	Source  string
	Missing []string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	msg := fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	if e.Source != "" {
		return e.Source + ": " + msg
	}
	return msg
}

// Is makes errors.Is(err, ErrMissingColumns) succeed
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumns
}

// NewMissingColumnError creates a new MissingColumnError
func NewMissingColumnError(source string, missing []string) *MissingColumnError {
	return &MissingColumnError{
		Source:  source,
		Missing: missing,
	}
}

// MalformedDataError reports a row whose required value is absent or unusable
type MalformedDataError struct {
	Source string
	Line   int
	Column string
	Value  string
	Reason string
}

// Error implements the error interface
func (e *MalformedDataError) Error() string {
	var b strings.Builder
	b.WriteString("malformed data")
	if e.Source != "" {
		fmt.Fprintf(&b, ": %s", e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %s=%q", e.Column, e.Value)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	return b.String()
}

// Is makes errors.Is(err, ErrMalformedData) succeed
func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformedData
}

// NewMalformedDataError creates a new MalformedDataError
func NewMalformedDataError(source string, line int, column, value, reason string) *MalformedDataError {
	return &MalformedDataError{
		Source: source,
		Line:   line,
		Column: column,
		Value:  value,
		Reason: reason,
	}
}

// EmptyDatasetError reports a dataset with no usable records
type EmptyDatasetError struct {
	Source string

	// Skipped is the number of rows dropped before the dataset became empty
	Skipped int
}

// Error implements the error interface
func (e *EmptyDatasetError) Error() string {
	msg := "empty dataset: no records to score"
	if e.Skipped > 0 {
		msg = fmt.Sprintf("empty dataset: all %d records were malformed", e.Skipped)
	}
	if e.Source != "" {
		return e.Source + ": " + msg
	}
	return msg
}

// Is makes errors.Is(err, ErrEmptyDataset) succeed
func (e *EmptyDatasetError) Is(target error) bool {
	return target == ErrEmptyDataset
}

// NewEmptyDatasetError creates a new EmptyDatasetError
func NewEmptyDatasetError(source string, skipped int) *EmptyDatasetError {
	return &EmptyDatasetError{Source: source, Skipped: skipped}
}

// ProcessingError wraps errors with additional context
type ProcessingError struct {
	// Op is the operation that failed
	Op string

	// FileName is the file being processed
	FileName string

	// LineNumber is the line where the error occurred
	LineNumber int

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("%s: %s:%d: %v", e.Op, e.FileName, e.LineNumber, e.Err)
	}
	if e.FileName != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.FileName, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(op, fileName string, lineNumber int, err error) *ProcessingError {
	return &ProcessingError{
		Op:         op,
		FileName:   fileName,
		LineNumber: lineNumber,
		Err:        err,
	}
}

// Error kinds returned by Kind
const (
	KindMissingColumns = "missing_columns"
	KindMalformedData  = "malformed_data"
	KindEmptyDataset   = "empty_dataset"
	KindInvalidCSV     = "invalid_csv"
	KindTooLarge       = "too_large"
	KindInternal       = "internal"
)

// Kind returns a short machine-readable name for the dataset error class of err,
// or KindInternal when err is not one of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMissingColumns):
		return KindMissingColumns
	case errors.Is(err, ErrMalformedData), errors.Is(err, ErrSkipThresholdExceeded):
		return KindMalformedData
	case errors.Is(err, ErrEmptyDataset), errors.Is(err, ErrEmptyFile):
		return KindEmptyDataset
	case errors.Is(err, ErrInvalidCSV), errors.Is(err, ErrInvalidHeader):
		return KindInvalidCSV
	case errors.Is(err, ErrUploadTooLarge):
		return KindTooLarge
	default:
		return KindInternal
	}
}

// IsDatasetError reports whether err is caused by the input data rather than the system,
// so the caller may fix the input and retry.
func IsDatasetError(err error) bool {
	k := Kind(err)
	return k != KindInternal && k != KindTooLarge
}
