package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/processor"
	"github.com/zuhrulumam/cropscore/internal/tracker"
	"github.com/zuhrulumam/cropscore/internal/worker"
)

// Pipeline scores a batch of CSV files concurrently and hands each result
// to a handler in completion order
type Pipeline struct {
	config Config

	workerPool *worker.Pool
	progress   *tracker.ProgressTracker
	errorCol   *errors.Collector
	logger     *zap.Logger

	// firstErr is the failure that aborted the batch, if any
	firstErr error

	summary *models.Summary

	// mu guards summary and firstErr
	mu sync.Mutex
}

// Config holds pipeline configuration
type Config struct {
	// Files are the CSV inputs, scored independently
	Files []string

	// Workers is the number of files scored at once (0 = NumCPU)
	Workers int

	// Processor scores a single file
	Processor processor.Processor

	// Handler receives every result from a single goroutine (optional)
	Handler processor.ResultHandler

	// BufferSize is the result channel buffer
	BufferSize int

	// MaxErrors caps the failures kept for the error report (0 = unlimited)
	MaxErrors int

	// ErrorThreshold aborts the batch once the failed-file fraction exceeds it (0 = off)
	ErrorThreshold float64

	// AbortOnError stops the batch at the first failed file
	AbortOnError bool

	// ShowProgress prints a progress line to ProgressWriter
	ShowProgress  bool
	VerboseOutput bool

	// ProgressWriter receives progress output (default: os.Stderr)
	ProgressWriter io.Writer

	// ErrorWriter receives the failure report (default: os.Stderr)
	ErrorWriter io.Writer

	Logger *zap.Logger
}

// NewPipeline creates a new batch pipeline
func NewPipeline(config Config) (*Pipeline, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.ProgressWriter == nil {
		config.ProgressWriter = os.Stderr
	}
	if config.ErrorWriter == nil {
		config.ErrorWriter = os.Stderr
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	progressWriter := config.ProgressWriter
	if !config.ShowProgress {
		progressWriter = io.Discard
	}

	return &Pipeline{
		config: config,
		errorCol: errors.NewCollector(errors.CollectorConfig{
			MaxErrors:        config.MaxErrors,
			ErrorThreshold:   config.ErrorThreshold,
			AbortOnThreshold: config.ErrorThreshold > 0,
		}),
		progress: tracker.NewProgressTracker(tracker.Config{
			Writer:         progressWriter,
			UpdateInterval: 1 * time.Second,
			Verbose:        config.VerboseOutput,
			TotalFiles:     uint64(len(config.Files)),
		}),
		logger:  logger.Named("pipeline"),
		summary: models.NewSummary(),
	}, nil
}

// Run scores every file. It returns an error only when the batch was cut
// short: by ctx, by AbortOnError, or by ErrorThreshold. Individual file
// failures are reported through Summary and Errors.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p.config.ShowProgress {
		if err := p.progress.Start(); err != nil {
			return fmt.Errorf("failed to start progress tracker: %w", err)
		}
	}

	jobs := make(chan *models.Job)

	pool, err := worker.NewPool(worker.Config{
		Context:          runCtx,
		Workers:          p.config.Workers,
		Processor:        p.config.Processor,
		InputChannel:     jobs,
		OutputBufferSize: p.config.BufferSize,
	})
	if err != nil {
		return err
	}
	p.workerPool = pool

	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	p.logger.Info("batch started",
		zap.Int("files", len(p.config.Files)),
		zap.Int("workers", pool.WorkerCount()),
	)

	go p.feed(runCtx, jobs)

	// Worker errors duplicate failed results; drain so the pool never blocks
	go func() {
		for range pool.Errors() {
		}
	}()

	received := p.handleResults(runCtx, cancel)
	pool.Wait()

	for i := received; i < len(p.config.Files); i++ {
		p.progress.IncrementSkipped()
		p.mu.Lock()
		p.summary.AddResult(&models.Result{Status: models.StatusSkipped})
		p.mu.Unlock()
	}

	p.finalize()

	if err := p.abortError(); err != nil {
		return err
	}
	return ctx.Err()
}

// feed queues one job per file until every file is queued or ctx ends
func (p *Pipeline) feed(ctx context.Context, jobs chan<- *models.Job) {
	defer close(jobs)

	for i, path := range p.config.Files {
		select {
		case jobs <- &models.Job{Index: i, Path: path}:
		case <-ctx.Done():
			return
		}
	}
}

// handleResults consumes results until the pool closes its output and
// returns how many arrived
func (p *Pipeline) handleResults(ctx context.Context, cancel context.CancelFunc) int {
	received := 0

	for result := range p.workerPool.Results() {
		received++

		// Files interrupted by cancellation were never scored
		if result.IsFailed() && ctx.Err() != nil &&
			(errors.Is(result.Error, context.Canceled) || errors.Is(result.Error, context.DeadlineExceeded)) {
			result.Status = models.StatusSkipped
		}

		p.progress.FileDone(result)
		p.errorCol.IncrementProcessed()

		p.mu.Lock()
		p.summary.AddResult(result)
		p.mu.Unlock()

		if result.IsFailed() {
			p.recordFailure(result, cancel)
		}

		if p.config.Handler != nil && result.Status != models.StatusSkipped {
			if err := p.config.Handler.Handle(result); err != nil {
				p.logger.Error("result handler failed",
					zap.String("path", result.Job.Path),
					zap.Error(err),
				)
				_ = p.errorCol.AddWithCategory(err, result.Job.Path, 0, errors.CategoryIO)
			}
		}
	}

	return received
}

func (p *Pipeline) recordFailure(result *models.Result, cancel context.CancelFunc) {
	path := result.Job.Path

	line := 0
	var malformed *errors.MalformedDataError
	if errors.As(result.Error, &malformed) {
		line = malformed.Line
	}

	p.logger.Warn("file failed",
		zap.String("path", path),
		zap.String("kind", errors.Kind(result.Error)),
		zap.Error(result.Error),
	)

	thresholdErr := p.errorCol.Add(result.Error, path, line)

	switch {
	case p.config.AbortOnError:
		p.setAbort(fmt.Errorf("%w at %s: %v", errors.ErrBatchAborted, path, result.Error))
		cancel()
	case thresholdErr != nil && errors.Is(thresholdErr, errors.ErrSkipThresholdExceeded):
		p.setAbort(fmt.Errorf("%w: %v", errors.ErrBatchAborted, thresholdErr))
		cancel()
	}
}

func (p *Pipeline) setAbort(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.firstErr == nil {
		p.firstErr = err
	}
}

func (p *Pipeline) abortError() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.firstErr
}

// finalize stops progress output and prints the failure report
func (p *Pipeline) finalize() {
	if p.config.ShowProgress {
		p.progress.StopAndPrintFinal()
	}

	p.mu.Lock()
	p.summary.Finalize()
	summary := *p.summary
	p.mu.Unlock()

	p.logger.Info("batch finished",
		zap.Int("files", summary.TotalFiles),
		zap.Int("scored", summary.SuccessCount),
		zap.Int("failed", summary.FailedCount),
		zap.Int("not_scored", summary.SkippedCount),
		zap.Int("records", summary.RecordsScored),
		zap.Duration("duration", summary.Duration),
	)

	errors.NewReporter(p.errorCol, p.config.ErrorWriter).Print()
}

// Summary returns the batch summary
func (p *Pipeline) Summary() *models.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.summary
}

// Errors returns the error collector
func (p *Pipeline) Errors() *errors.Collector {
	return p.errorCol
}

// Progress returns the progress tracker
func (p *Pipeline) Progress() *tracker.ProgressTracker {
	return p.progress
}

// validateConfig validates pipeline configuration
func validateConfig(config Config) error {
	if len(config.Files) == 0 {
		return fmt.Errorf("no input files specified")
	}

	if config.Processor == nil {
		return fmt.Errorf("processor is required")
	}

	for _, file := range config.Files {
		info, err := os.Stat(file)
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", file)
		}
		if err == nil && info.IsDir() {
			return fmt.Errorf("not a file: %s", file)
		}
	}

	if config.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}

	if config.BufferSize < 0 {
		return fmt.Errorf("buffer size must be non-negative")
	}

	if config.ErrorThreshold < 0 || config.ErrorThreshold > 1 {
		return fmt.Errorf("error threshold must be between 0.0 and 1.0")
	}

	return nil
}
