package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/reader"
	"github.com/zuhrulumam/cropscore/internal/scoring"
)

// Processor defines the contract for scoring one batch job
type Processor interface {
	// Process scores the job's input and returns the result
	Process(ctx context.Context, job *models.Job) (*models.Result, error)
}

// ProcessorFunc is a function type that implements the Processor interface
type ProcessorFunc func(ctx context.Context, job *models.Job) (*models.Result, error)

// Process calls the function itself
func (f ProcessorFunc) Process(ctx context.Context, job *models.Job) (*models.Result, error) {
	return f(ctx, job)
}

// ScoringProcessor reads a CSV file and scores it
type ScoringProcessor struct {
	scorer *scoring.Scorer
	reader reader.Config
	logger *zap.Logger
}

// NewScoringProcessor creates a processor around scorer.
// readerConfig.Source is ignored; every file is named by its base name.
func NewScoringProcessor(scorer *scoring.Scorer, readerConfig reader.Config, logger *zap.Logger) *ScoringProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	readerConfig.Source = ""

	return &ScoringProcessor{
		scorer: scorer,
		reader: readerConfig,
		logger: logger,
	}
}

// Process implements the Processor interface
func (p *ScoringProcessor) Process(ctx context.Context, job *models.Job) (*models.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	startTime := time.Now()

	ds, err := reader.ReadFile(ctx, job.Path, p.reader)
	if err != nil {
		return nil, err
	}

	report, err := p.scorer.Score(ctx, ds)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("scored file",
		zap.String("path", job.Path),
		zap.Int("records", len(report.Scored)),
		zap.Int("skipped", len(report.Skipped)),
	)

	return models.NewSuccessResult(job, report, time.Since(startTime)), nil
}

// ResultHandler handles processing results
type ResultHandler interface {
	// Handle consumes a result (e.g., render the report, log the failure)
	Handle(result *models.Result) error
}

// ResultHandlerFunc adapts a function to ResultHandler
type ResultHandlerFunc func(result *models.Result) error

// Handle calls f(result)
func (f ResultHandlerFunc) Handle(result *models.Result) error {
	return f(result)
}
