package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestProcessingError(t *testing.T) {
	tests := []struct {
		name       string
		op         string
		fileName   string
		lineNumber int
		err        error
		want       string
	}{
		{
			name:       "full error",
			op:         "read",
			fileName:   "fields.csv",
			lineNumber: 42,
			err:        errors.New("invalid format"),
			want:       "read: fields.csv:42: invalid format",
		},
		{
			name:       "no line number",
			op:         "parse",
			fileName:   "fields.csv",
			lineNumber: 0,
			err:        errors.New("parse error"),
			want:       "parse: fields.csv: parse error",
		},
		{
			name:       "no file name",
			op:         "validate",
			fileName:   "",
			lineNumber: 0,
			err:        errors.New("validation failed"),
			want:       "validate: validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProcessingError(tt.op, tt.fileName, tt.lineNumber, tt.err)
			if got := err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingColumnError(t *testing.T) {
	err := NewMissingColumnError("fields.csv", []string{"Crop", "Water_Use"})

	if got, want := err.Error(), "fields.csv: missing required columns: Crop, Water_Use"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("score: %w", err)
	if !errors.Is(wrapped, ErrMissingColumns) {
		t.Error("errors.Is(wrapped, ErrMissingColumns) = false")
	}

	var mce *MissingColumnError
	if !As(wrapped, &mce) || len(mce.Missing) != 2 {
		t.Errorf("As() did not recover the missing column list: %v", mce)
	}
}

func TestMalformedDataError(t *testing.T) {
	tests := []struct {
		name string
		err  *MalformedDataError
		want string
	}{
		{
			name: "column value",
			err:  NewMalformedDataError("fields.csv", 4, "Yield", "abc", "not a number"),
			want: `malformed data: fields.csv:4: column Yield="abc": not a number`,
		},
		{
			name: "row level",
			err:  NewMalformedDataError("", 7, "", "", "expected 5 fields, got 3"),
			want: "malformed data:7: expected 5 fields, got 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !Is(tt.err, ErrMalformedData) {
				t.Error("Is(err, ErrMalformedData) = false")
			}
		})
	}
}

func TestEmptyDatasetError(t *testing.T) {
	if got, want := NewEmptyDatasetError("", 0).Error(), "empty dataset: no records to score"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if got, want := NewEmptyDatasetError("x.csv", 3).Error(), "x.csv: empty dataset: all 3 records were malformed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(NewEmptyDatasetError("", 0), ErrEmptyDataset) {
		t.Error("errors.Is(err, ErrEmptyDataset) = false")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err     error
		want    string
		dataset bool
	}{
		{NewMissingColumnError("", []string{"Field"}), "missing_columns", true},
		{NewMalformedDataError("", 2, "Yield", "", "missing value"), "malformed_data", true},
		{fmt.Errorf("wrap: %w", ErrSkipThresholdExceeded), "malformed_data", true},
		{NewEmptyDatasetError("", 0), "empty_dataset", true},
		{ErrEmptyFile, "empty_dataset", true},
		{ErrInvalidHeader, "invalid_csv", true},
		{ErrUploadTooLarge, "too_large", false},
		{errors.New("disk on fire"), "internal", false},
		{fmt.Errorf("%w at a.csv: %v", ErrBatchAborted, NewMissingColumnError("a.csv", []string{"Yield"})), "internal", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
			if got := IsDatasetError(tt.err); got != tt.dataset {
				t.Errorf("IsDatasetError() = %v, want %v", got, tt.dataset)
			}
		})
	}
}
