package models

import (
	"time"
)

// ProcessingStatus represents the outcome of scoring one input file
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "SUCCESS"
	StatusFailed  ProcessingStatus = "FAILED"
	StatusSkipped ProcessingStatus = "SKIPPED"
)

// Job is one input file queued for batch scoring
type Job struct {
	// Index is the position of the file on the command line
	Index int

	// Path is the file to score
	Path string
}

// Result represents the outcome of scoring a single file
type Result struct {
	// Job is the job that was processed
	Job *Job

	// Status indicates the processing outcome
	Status ProcessingStatus

	// Error contains any error that occurred during processing
	Error error

	// Report is the scoring output when Status is StatusSuccess
	Report *Report

	// ProcessedAt is when this file was processed
	ProcessedAt time.Time

	// Duration is how long processing took
	Duration time.Duration
}

// NewSuccessResult creates a successful result
func NewSuccessResult(job *Job, report *Report, duration time.Duration) *Result {
	return &Result{
		Job:         job,
		Status:      StatusSuccess,
		Report:      report,
		ProcessedAt: time.Now(),
		Duration:    duration,
	}
}

// NewFailedResult creates a failed result
func NewFailedResult(job *Job, err error, duration time.Duration) *Result {
	return &Result{
		Job:         job,
		Status:      StatusFailed,
		Error:       err,
		ProcessedAt: time.Now(),
		Duration:    duration,
	}
}

// IsSuccess returns true if the result is successful
func (r *Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// IsFailed returns true if the result is failed
func (r *Result) IsFailed() bool {
	return r.Status == StatusFailed
}

// Summary represents aggregated batch results
type Summary struct {
	// TotalFiles is the total number of files processed
	TotalFiles int

	// SuccessCount is the number of files scored successfully
	SuccessCount int

	// FailedCount is the number of files that failed
	FailedCount int

	// SkippedCount is the number of files never processed (cancelled)
	SkippedCount int

	// RecordsScored is the number of rows scored across successful files
	RecordsScored int

	// RecordsSkipped is the number of malformed rows dropped under the skip policy
	RecordsSkipped int

	// StartTime is when processing started
	StartTime time.Time

	// EndTime is when processing completed
	EndTime time.Time

	// Duration is the total processing time
	Duration time.Duration

	// Throughput is files processed per second
	Throughput float64
}

// NewSummary creates a new Summary instance
func NewSummary() *Summary {
	return &Summary{
		StartTime: time.Now(),
	}
}

// AddResult updates the summary with a new result
func (s *Summary) AddResult(result *Result) {
	s.TotalFiles++

	switch result.Status {
	case StatusSuccess:
		s.SuccessCount++
		if result.Report != nil {
			s.RecordsScored += len(result.Report.Scored)
			s.RecordsSkipped += len(result.Report.Skipped)
		}
	case StatusFailed:
		s.FailedCount++
	case StatusSkipped:
		s.SkippedCount++
	}
}

// Finalize completes the summary calculation
func (s *Summary) Finalize() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	if s.Duration.Seconds() > 0 {
		s.Throughput = float64(s.TotalFiles) / s.Duration.Seconds()
	}
}

// SuccessRate returns the percentage of successful files
func (s *Summary) SuccessRate() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalFiles) * 100
}

// FailureRate returns the percentage of failed files
func (s *Summary) FailureRate() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.FailedCount) / float64(s.TotalFiles) * 100
}
