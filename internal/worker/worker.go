package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/processor"
)

// Worker represents a single worker that scores jobs
type Worker struct {
	id        int
	processor processor.Processor
	processed uint64
	failed    uint64
}

// NewWorker creates a new worker
func NewWorker(id int, proc processor.Processor) *Worker {
	return &Worker{
		id:        id,
		processor: proc,
	}
}

// Process runs one job. Processor errors become failed results.
func (w *Worker) Process(ctx context.Context, job *models.Job) *models.Result {
	startTime := time.Now()

	result, err := w.processor.Process(ctx, job)
	duration := time.Since(startTime)

	if err != nil || result == nil || result.IsFailed() {
		atomic.AddUint64(&w.failed, 1)
		if result == nil || err != nil {
			result = models.NewFailedResult(job, err, duration)
		}
		return result
	}

	atomic.AddUint64(&w.processed, 1)

	if result.Duration == 0 {
		result.Duration = duration
	}
	return result
}

// ID returns the worker ID
func (w *Worker) ID() int {
	return w.id
}

// Stats returns worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:        w.id,
		Processed: atomic.LoadUint64(&w.processed),
		Failed:    atomic.LoadUint64(&w.failed),
	}
}

// WorkerStats holds statistics for a worker
type WorkerStats struct {
	ID        int
	Processed uint64
	Failed    uint64
}
