package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/processor"
)

// Pool manages a pool of workers that score jobs concurrently
type Pool struct {
	// workers holds one Worker per goroutine
	workers []*Worker

	// inputCh receives jobs to process
	inputCh <-chan *models.Job

	// outputCh sends processing results
	outputCh chan *models.Result

	// errorCh sends errors that occur during processing
	errorCh chan error

	// wg waits for all workers to complete
	wg sync.WaitGroup

	// ctx is the context for cancellation
	ctx context.Context

	// cancel cancels the context
	cancel context.CancelFunc

	// started indicates if the pool has been started
	started bool

	// mu protects started flag
	mu sync.Mutex
}

// Config holds configuration for the worker pool
type Config struct {
	// Context is the parent context (defaults to context.Background)
	Context context.Context

	// Workers is the number of concurrent workers (0 = NumCPU)
	Workers int

	// Processor scores individual jobs
	Processor processor.Processor

	// InputChannel receives jobs to process
	InputChannel <-chan *models.Job

	// OutputBufferSize is the size of the output channel buffer
	OutputBufferSize int

	// ErrorBufferSize is the size of the error channel buffer
	ErrorBufferSize int
}

// NewPool creates a new worker pool
func NewPool(config Config) (*Pool, error) {
	if config.Processor == nil {
		return nil, fmt.Errorf("worker pool: processor is required")
	}
	if config.InputChannel == nil {
		return nil, fmt.Errorf("worker pool: input channel is required")
	}

	// Default to NumCPU workers if not specified
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}

	// Default buffer sizes
	if config.OutputBufferSize <= 0 {
		config.OutputBufferSize = config.Workers * 2
	}
	if config.ErrorBufferSize <= 0 {
		config.ErrorBufferSize = 10
	}

	parent := config.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	workers := make([]*Worker, config.Workers)
	for i := range workers {
		workers[i] = NewWorker(i, config.Processor)
	}

	return &Pool{
		workers:  workers,
		inputCh:  config.InputChannel,
		outputCh: make(chan *models.Result, config.OutputBufferSize),
		errorCh:  make(chan error, config.ErrorBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started")
	}

	p.started = true

	for _, w := range p.workers {
		p.wg.Add(1)
		go p.run(w)
	}

	// Closes output channels once every worker has returned
	go func() {
		p.wg.Wait()
		close(p.outputCh)
		close(p.errorCh)
	}()

	return nil
}

// run feeds jobs from the input channel to one worker
func (p *Pool) run(w *Worker) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case job, ok := <-p.inputCh:
			if !ok {
				return
			}

			result := w.Process(p.ctx, job)

			if result.Error != nil {
				// Non-blocking; the result carries the error as well
				select {
				case p.errorCh <- fmt.Errorf("%s: %w", job.Path, result.Error):
				default:
				}
			}

			select {
			case p.outputCh <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Results returns the output channel for processing results
func (p *Pool) Results() <-chan *models.Result {
	return p.outputCh
}

// Errors returns the error channel
func (p *Pool) Errors() <-chan error {
	return p.errorCh
}

// Stop cancels in-flight and queued jobs
func (p *Pool) Stop() {
	p.cancel()
}

// Wait waits for all workers to complete
func (p *Pool) Wait() {
	p.wg.Wait()
}

// StopAndWait stops the pool and waits for completion
func (p *Pool) StopAndWait() {
	p.Stop()
	p.Wait()
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return len(p.workers)
}

// Stats returns per-worker statistics, ordered by worker ID
func (p *Pool) Stats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}
