package reader

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
)

// utf8BOM is stripped from the first header cell; spreadsheet exports often carry it
const utf8BOM = "\ufeff"

// CSVReader decodes one delimited text input into a Dataset
type CSVReader struct {
	// source names the input in errors and records
	source string

	// comma is the field delimiter
	comma rune

	// maxRecords caps the number of data rows (0 = unlimited)
	maxRecords int
}

// Config holds configuration for CSVReader
type Config struct {
	// Source is the display name of the input (defaults to "input")
	Source string

	// Comma is the field delimiter (defaults to ',')
	Comma rune

	// MaxRecords caps the number of data rows accepted (0 = unlimited)
	MaxRecords int
}

// NewCSVReader creates a new CSVReader instance
func NewCSVReader(config Config) *CSVReader {
	if config.Source == "" {
		config.Source = "input"
	}
	if config.Comma == 0 {
		config.Comma = ','
	}

	return &CSVReader{
		source:     config.Source,
		comma:      config.Comma,
		maxRecords: config.MaxRecords,
	}
}

// emptyFileError reports input without a header row. It matches both
// ErrEmptyFile and ErrEmptyDataset.
func (r *CSVReader) emptyFileError() error {
	return errors.NewProcessingError("read_header", r.source, 0,
		fmt.Errorf("%w: %w", errors.ErrEmptyFile, errors.NewEmptyDatasetError(r.source, 0)))
}

// Read decodes the header row and every data row from in.
// Rows keep their raw cells; width mismatches are left for the caller's malformed-row policy.
func (r *CSVReader) Read(ctx context.Context, in io.Reader) (*models.Dataset, error) {
	buffered := bufio.NewReader(in)
	if _, err := buffered.Peek(1); err == io.EOF {
		return nil, r.emptyFileError()
	}

	csvReader := csv.NewReader(buffered)
	csvReader.Comma = r.comma
	csvReader.FieldsPerRecord = -1
	csvReader.ReuseRecord = true

	rawHeaders, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, r.emptyFileError()
		}
		return nil, errors.NewProcessingError("read_header", r.source, 1, fmt.Errorf("%w: %w", errors.ErrInvalidCSV, err))
	}

	headers := make([]string, len(rawHeaders))
	copy(headers, rawHeaders)
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)

	if err := validateHeaders(headers); err != nil {
		return nil, errors.NewProcessingError("validate_header", r.source, 1, err)
	}

	dataset := &models.Dataset{
		Source:  r.source,
		Headers: headers,
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		data, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			return nil, errors.NewProcessingError("read_record", r.source, line, fmt.Errorf("%w: %w", errors.ErrInvalidCSV, err))
		}

		if r.maxRecords > 0 && len(dataset.Records) >= r.maxRecords {
			return nil, errors.NewProcessingError("read_record", r.source, 0,
				fmt.Errorf("%w: more than %d records", errors.ErrUploadTooLarge, r.maxRecords))
		}

		// Physical line of the row start, so quoted multi-line cells still point at the right place
		line, _ := csvReader.FieldPos(0)

		// ReuseRecord hands back the same backing array on every call
		dataCopy := make([]string, len(data))
		copy(dataCopy, data)

		dataset.Records = append(dataset.Records, models.NewRecord(line, r.source, dataCopy, headers))
	}

	return dataset, nil
}

// ReadFile opens and decodes a single CSV file
func ReadFile(ctx context.Context, filename string, config Config) (*models.Dataset, error) {
	if config.Source == "" {
		config.Source = filepath.Base(filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewProcessingError("open", config.Source, 0, errors.ErrFileNotFound)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return NewCSVReader(config).Read(ctx, file)
}

// ReadString decodes CSV held in memory
func ReadString(ctx context.Context, content string, config Config) (*models.Dataset, error) {
	return NewCSVReader(config).Read(ctx, strings.NewReader(content))
}
