package tracker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zuhrulumam/cropscore/internal/models"
)

// ProgressTracker counts scored files during a batch run and periodically
// prints a progress line
type ProgressTracker struct {
	// Atomic counters (must be 64-bit aligned for 32-bit systems)
	totalFiles     uint64
	processedCount uint64
	successCount   uint64
	failedCount    uint64
	skippedCount   uint64
	rowsScored     uint64
	rowsSkipped    uint64

	startTime time.Time
	ticker    *time.Ticker
	writer    io.Writer
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards started and startTime
	mu      sync.RWMutex
	started bool

	verbose bool
}

// Config holds configuration for progress tracker
type Config struct {
	// Writer is where progress updates are written (default: io.Discard)
	Writer io.Writer

	// UpdateInterval is how often to print updates (default: 1 second)
	UpdateInterval time.Duration

	// Verbose prints a multi-line block instead of a single status line
	Verbose bool

	// TotalFiles is the expected number of files (0 = unknown)
	TotalFiles uint64
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(config Config) *ProgressTracker {
	if config.Writer == nil {
		config.Writer = io.Discard
	}

	if config.UpdateInterval <= 0 {
		config.UpdateInterval = 1 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ProgressTracker{
		totalFiles: config.TotalFiles,
		startTime:  time.Now(),
		writer:     config.Writer,
		interval:   config.UpdateInterval,
		ctx:        ctx,
		cancel:     cancel,
		verbose:    config.Verbose,
	}
}

// Start starts the periodic progress output
func (pt *ProgressTracker) Start() error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.started {
		return fmt.Errorf("progress tracker already started")
	}

	pt.started = true
	pt.startTime = time.Now()
	pt.ticker = time.NewTicker(pt.interval)

	pt.wg.Add(1)
	go pt.updateLoop()

	return nil
}

func (pt *ProgressTracker) updateLoop() {
	defer pt.wg.Done()

	for {
		select {
		case <-pt.ctx.Done():
			return
		case <-pt.ticker.C:
			pt.printProgress()
		}
	}
}

// FileDone records the outcome of one file, including its row counts
func (pt *ProgressTracker) FileDone(result *models.Result) {
	atomic.AddUint64(&pt.processedCount, 1)

	if result == nil {
		return
	}

	switch result.Status {
	case models.StatusSuccess:
		atomic.AddUint64(&pt.successCount, 1)
		if result.Report != nil {
			atomic.AddUint64(&pt.rowsScored, uint64(len(result.Report.Scored)))
			atomic.AddUint64(&pt.rowsSkipped, uint64(len(result.Report.Skipped)))
		}
	case models.StatusFailed:
		atomic.AddUint64(&pt.failedCount, 1)
	case models.StatusSkipped:
		atomic.AddUint64(&pt.skippedCount, 1)
	}
}

// IncrementSuccess counts one successful file
func (pt *ProgressTracker) IncrementSuccess() {
	atomic.AddUint64(&pt.processedCount, 1)
	atomic.AddUint64(&pt.successCount, 1)
}

// IncrementFailed counts one failed file
func (pt *ProgressTracker) IncrementFailed() {
	atomic.AddUint64(&pt.processedCount, 1)
	atomic.AddUint64(&pt.failedCount, 1)
}

// IncrementSkipped counts one file that was never scored
func (pt *ProgressTracker) IncrementSkipped() {
	atomic.AddUint64(&pt.processedCount, 1)
	atomic.AddUint64(&pt.skippedCount, 1)
}

// SetTotal sets the expected number of files
func (pt *ProgressTracker) SetTotal(total uint64) {
	atomic.StoreUint64(&pt.totalFiles, total)
}

// Processed returns the number of files handled so far
func (pt *ProgressTracker) Processed() uint64 {
	return atomic.LoadUint64(&pt.processedCount)
}

// Success returns the number of successfully scored files
func (pt *ProgressTracker) Success() uint64 {
	return atomic.LoadUint64(&pt.successCount)
}

// Failed returns the number of failed files
func (pt *ProgressTracker) Failed() uint64 {
	return atomic.LoadUint64(&pt.failedCount)
}

// Skipped returns the number of files never scored
func (pt *ProgressTracker) Skipped() uint64 {
	return atomic.LoadUint64(&pt.skippedCount)
}

// RowsScored returns the number of rows scored across successful files
func (pt *ProgressTracker) RowsScored() uint64 {
	return atomic.LoadUint64(&pt.rowsScored)
}

// RowsSkipped returns the number of malformed rows dropped across successful files
func (pt *ProgressTracker) RowsSkipped() uint64 {
	return atomic.LoadUint64(&pt.rowsSkipped)
}

// Total returns the expected number of files
func (pt *ProgressTracker) Total() uint64 {
	return atomic.LoadUint64(&pt.totalFiles)
}

// Elapsed returns the time elapsed since start
func (pt *ProgressTracker) Elapsed() time.Duration {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	return time.Since(pt.startTime)
}

// Throughput returns files handled per second
func (pt *ProgressTracker) Throughput() float64 {
	elapsed := pt.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(pt.Processed()) / elapsed
}

// SuccessRate returns the success rate as a percentage
func (pt *ProgressTracker) SuccessRate() float64 {
	processed := pt.Processed()
	if processed == 0 {
		return 0
	}
	return float64(pt.Success()) / float64(processed) * 100
}

// FailureRate returns the failure rate as a percentage
func (pt *ProgressTracker) FailureRate() float64 {
	processed := pt.Processed()
	if processed == 0 {
		return 0
	}
	return float64(pt.Failed()) / float64(processed) * 100
}

// PercentComplete returns the completion percentage
func (pt *ProgressTracker) PercentComplete() float64 {
	total := pt.Total()
	if total == 0 {
		return 0
	}
	return float64(pt.Processed()) / float64(total) * 100
}

// ETA returns the estimated time to completion
func (pt *ProgressTracker) ETA() time.Duration {
	total := pt.Total()
	processed := pt.Processed()

	if total == 0 || processed == 0 || processed >= total {
		return 0
	}

	perFile := pt.Elapsed() / time.Duration(processed)
	return perFile * time.Duration(total-processed)
}

func (pt *ProgressTracker) printProgress() {
	if pt.verbose {
		pt.printVerboseProgress()
		return
	}

	elapsed := pt.Elapsed().Round(time.Second)

	if total := pt.Total(); total > 0 {
		fmt.Fprintf(pt.writer,
			"\r[%s] Files: %d/%d (%.1f%%) | OK: %d | Failed: %d | Rows: %d | ETA: %s",
			elapsed,
			pt.Processed(),
			total,
			pt.PercentComplete(),
			pt.Success(),
			pt.Failed(),
			pt.RowsScored(),
			pt.ETA().Round(time.Second),
		)
		return
	}

	fmt.Fprintf(pt.writer,
		"\r[%s] Files: %d | OK: %d | Failed: %d | Rows: %d",
		elapsed,
		pt.Processed(),
		pt.Success(),
		pt.Failed(),
		pt.RowsScored(),
	)
}

func (pt *ProgressTracker) printVerboseProgress() {
	fmt.Fprintf(pt.writer, "\n----------------------------------------\n")
	fmt.Fprintf(pt.writer, "Batch progress\n")
	fmt.Fprintf(pt.writer, "Elapsed:       %s\n", pt.Elapsed().Round(time.Second))
	fmt.Fprintf(pt.writer, "Files:         %d", pt.Processed())
	if total := pt.Total(); total > 0 {
		fmt.Fprintf(pt.writer, " of %d (%.1f%%), ETA %s", total, pt.PercentComplete(), pt.ETA().Round(time.Second))
	}
	fmt.Fprintf(pt.writer, "\n")
	fmt.Fprintf(pt.writer, "Scored:        %d (%.1f%%)\n", pt.Success(), pt.SuccessRate())
	fmt.Fprintf(pt.writer, "Failed:        %d (%.1f%%)\n", pt.Failed(), pt.FailureRate())
	fmt.Fprintf(pt.writer, "Rows scored:   %d\n", pt.RowsScored())
	if skipped := pt.RowsSkipped(); skipped > 0 {
		fmt.Fprintf(pt.writer, "Rows skipped:  %d\n", skipped)
	}
}

// PrintFinal prints the final batch summary
func (pt *ProgressTracker) PrintFinal() {
	fmt.Fprintf(pt.writer, "\n")
	fmt.Fprintf(pt.writer, "========================================\n")
	fmt.Fprintf(pt.writer, "Batch Complete\n")
	fmt.Fprintf(pt.writer, "========================================\n")
	fmt.Fprintf(pt.writer, "Total Time:       %s\n", pt.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(pt.writer, "Files:            %d\n", pt.Processed())
	fmt.Fprintf(pt.writer, "Scored:           %d (%.1f%%)\n", pt.Success(), pt.SuccessRate())
	fmt.Fprintf(pt.writer, "Failed:           %d (%.1f%%)\n", pt.Failed(), pt.FailureRate())

	if skipped := pt.Skipped(); skipped > 0 {
		fmt.Fprintf(pt.writer, "Not scored:       %d\n", skipped)
	}

	fmt.Fprintf(pt.writer, "Rows scored:      %d\n", pt.RowsScored())
	if rows := pt.RowsSkipped(); rows > 0 {
		fmt.Fprintf(pt.writer, "Rows skipped:     %d\n", rows)
	}
	fmt.Fprintf(pt.writer, "========================================\n")
}

// Stats returns current statistics
func (pt *ProgressTracker) Stats() Stats {
	return Stats{
		Processed:       pt.Processed(),
		Success:         pt.Success(),
		Failed:          pt.Failed(),
		Skipped:         pt.Skipped(),
		Total:           pt.Total(),
		RowsScored:      pt.RowsScored(),
		RowsSkipped:     pt.RowsSkipped(),
		Elapsed:         pt.Elapsed(),
		Throughput:      pt.Throughput(),
		SuccessRate:     pt.SuccessRate(),
		FailureRate:     pt.FailureRate(),
		PercentComplete: pt.PercentComplete(),
		ETA:             pt.ETA(),
	}
}

// Stop stops the periodic output and prints one last progress line
func (pt *ProgressTracker) Stop() {
	pt.mu.Lock()
	if !pt.started {
		pt.mu.Unlock()
		return
	}
	pt.started = false
	pt.ticker.Stop()
	pt.mu.Unlock()

	pt.cancel()
	pt.wg.Wait()

	pt.printProgress()
}

// StopAndPrintFinal stops the tracker and prints final summary
func (pt *ProgressTracker) StopAndPrintFinal() {
	pt.Stop()
	pt.PrintFinal()
}

// Stats holds statistics snapshot
type Stats struct {
	Processed       uint64
	Success         uint64
	Failed          uint64
	Skipped         uint64
	Total           uint64
	RowsScored      uint64
	RowsSkipped     uint64
	Elapsed         time.Duration
	Throughput      float64
	SuccessRate     float64
	FailureRate     float64
	PercentComplete float64
	ETA             time.Duration
}

// String returns a string representation of stats
func (s Stats) String() string {
	return fmt.Sprintf(
		"Files: %d, Scored: %d (%.1f%%), Failed: %d (%.1f%%), Rows: %d, Elapsed: %s",
		s.Processed,
		s.Success,
		s.SuccessRate,
		s.Failed,
		s.FailureRate,
		s.RowsScored,
		s.Elapsed.Round(time.Second),
	)
}
