package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"
)

// Collector gathers the failures of one scoring run: skipped rows of a
// dataset, or failed files of a batch. Safe for concurrent use.
type Collector struct {
	mu sync.RWMutex

	errors []ErrorEntry

	// maxErrors caps stored entries (0 = unlimited)
	maxErrors int

	// errorThreshold is the failure rate (0.0-1.0) Add reports once exceeded
	errorThreshold float64

	// totalProcessed counts rows (or files) seen, failed or not
	totalProcessed uint64

	abortOnThreshold bool
}

// ErrorEntry is one collected failure and where it happened
type ErrorEntry struct {
	Error     error
	Source    string
	Line      int
	Timestamp time.Time
	Category  ErrorCategory

	// Kind is the dataset error class, see Kind
	Kind string

	// Column names the offending CSV column of a malformed row, if known
	Column string
}

// ErrorCategory groups failures by where they came from
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryProcessing ErrorCategory = "PROCESSING"
	CategoryIO         ErrorCategory = "IO"
	CategoryTimeout    ErrorCategory = "TIMEOUT"
	CategoryUnknown    ErrorCategory = "UNKNOWN"
)

// CollectorConfig holds configuration for error collector
type CollectorConfig struct {
	// MaxErrors is the maximum number of errors to store (0 = unlimited)
	MaxErrors int

	// ErrorThreshold is the max error rate (0.0-1.0).
	// Example: 0.1 = more than 10% of rows failing exceeds it
	ErrorThreshold float64

	// AbortOnThreshold makes Add return ErrSkipThresholdExceeded as soon
	// as the threshold is exceeded
	AbortOnThreshold bool
}

// NewCollector creates a new error collector
func NewCollector(config CollectorConfig) *Collector {
	return &Collector{
		errors:           make([]ErrorEntry, 0),
		maxErrors:        config.MaxErrors,
		errorThreshold:   config.ErrorThreshold,
		abortOnThreshold: config.AbortOnThreshold,
	}
}

// Add adds an error to the collector. The source and line locate it, either may be empty.
func (c *Collector) Add(err error, source string, line int) error {
	return c.add(err, source, line, categorizeError(err))
}

// AddWithCategory adds an error with explicit category
func (c *Collector) AddWithCategory(err error, source string, line int, category ErrorCategory) error {
	return c.add(err, source, line, category)
}

func (c *Collector) add(err error, source string, line int, category ErrorCategory) error {
	if err == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxErrors > 0 && len(c.errors) >= c.maxErrors {
		return fmt.Errorf("maximum error limit reached (%d errors)", c.maxErrors)
	}

	entry := ErrorEntry{
		Error:     err,
		Source:    source,
		Line:      line,
		Timestamp: time.Now(),
		Category:  category,
		Kind:      Kind(err),
	}

	var malformed *MalformedDataError
	if errors.As(err, &malformed) {
		entry.Column = malformed.Column
	}

	c.errors = append(c.errors, entry)

	if c.abortOnThreshold && c.errorThreshold > 0 {
		errorRate := c.calculateErrorRate()
		if errorRate > c.errorThreshold {
			return fmt.Errorf("%w: %.1f%% > %.1f%%",
				ErrSkipThresholdExceeded, errorRate*100, c.errorThreshold*100)
		}
	}

	return nil
}

// IncrementProcessed increments the total processed count
func (c *Collector) IncrementProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalProcessed++
}

// calculateErrorRate calculates the current error rate
func (c *Collector) calculateErrorRate() float64 {
	if c.totalProcessed == 0 {
		return 0
	}
	return float64(len(c.errors)) / float64(c.totalProcessed)
}

// Errors returns a copy of all collected errors
func (c *Collector) Errors() []ErrorEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	errorsCopy := make([]ErrorEntry, len(c.errors))
	copy(errorsCopy, c.errors)

	return errorsCopy
}

// ErrorsByCategory returns errors grouped by category
func (c *Collector) ErrorsByCategory() map[ErrorCategory][]ErrorEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	grouped := make(map[ErrorCategory][]ErrorEntry)
	for _, entry := range c.errors {
		grouped[entry.Category] = append(grouped[entry.Category], entry)
	}

	return grouped
}

// HasErrors returns true if any errors were collected
func (c *Collector) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.errors) > 0
}

// Count returns the number of errors collected
func (c *Collector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.errors)
}

// ErrorRate returns the current error rate (0.0-1.0)
func (c *Collector) ErrorRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.calculateErrorRate()
}

// ThresholdExceeded returns true if error threshold was exceeded
func (c *Collector) ThresholdExceeded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.errorThreshold == 0 {
		return false
	}

	return c.calculateErrorRate() > c.errorThreshold
}

// Summary returns an error summary
func (c *Collector) Summary() ErrorSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := ErrorSummary{
		TotalErrors:    len(c.errors),
		TotalProcessed: c.totalProcessed,
		ErrorRate:      c.calculateErrorRate(),
		ByCategory:     make(map[ErrorCategory]int),
		ByKind:         make(map[string]int),
		ByColumn:       make(map[string]int),
	}

	for _, entry := range c.errors {
		summary.ByCategory[entry.Category]++
		summary.ByKind[entry.Kind]++
		if entry.Column != "" {
			summary.ByColumn[entry.Column]++
		}
	}

	return summary
}

// ErrorSummary provides aggregated error statistics
type ErrorSummary struct {
	TotalErrors    int
	TotalProcessed uint64
	ErrorRate      float64
	ByCategory     map[ErrorCategory]int
	ByKind         map[string]int

	// ByColumn counts malformed rows per offending column
	ByColumn map[string]int
}

// String returns a string representation of the summary
func (s ErrorSummary) String() string {
	return fmt.Sprintf(
		"Total Errors: %d/%d (%.1f%%), Malformed rows: %d",
		s.TotalErrors,
		s.TotalProcessed,
		s.ErrorRate*100,
		s.ByKind[KindMalformedData],
	)
}

// categorizeError attempts to categorize an error
func categorizeError(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	switch {
	case IsValidationError(err):
		return CategoryValidation
	case IsIOError(err):
		return CategoryIO
	case IsTimeoutError(err):
		return CategoryTimeout
	case IsProcessingError(err):
		return CategoryProcessing
	default:
		return CategoryUnknown
	}
}

// IsValidationError checks if error is caused by the dataset contents
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrMalformedData) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrInvalidHeader) ||
		errors.Is(err, ErrInvalidCSV)
}

// IsIOError checks if error is an I/O error
func IsIOError(err error) bool {
	if err == nil {
		return false
	}

	var pathErr *fs.PathError
	return errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrEmptyFile) || errors.As(err, &pathErr)
}

// IsTimeoutError checks if error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// IsProcessingError checks if error is a processing error
func IsProcessingError(err error) bool {
	if err == nil {
		return false
	}

	var procErr *ProcessingError
	return errors.As(err, &procErr)
}
