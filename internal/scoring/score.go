// Package scoring computes sustainability scores for a crop dataset and
// selects the best row per field and overall.
package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/models"
)

// Policy decides what happens to a row with malformed data
type Policy string

const (
	// PolicyReject fails the whole dataset on the first malformed row
	PolicyReject Policy = "reject"

	// PolicySkip drops malformed rows and reports them in Report.Skipped
	PolicySkip Policy = "skip"
)

// DefaultTopK is the number of ranked rows kept per field when top-K is enabled
const DefaultTopK = 3

// ParsePolicy converts a policy name, case-insensitively. Empty means reject.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown malformed-row policy %q (want %q or %q)", s, PolicyReject, PolicySkip)
	}
}

// Options configures a Scorer
type Options struct {
	// Policy applied to malformed rows (defaults to PolicyReject)
	Policy Policy

	// TopK is the number of ranked rows kept per field (0 disables the top-K table)
	TopK int

	// SkipThreshold is the largest tolerated fraction of skipped rows under
	// PolicySkip, in (0, 1]. 0 means no limit.
	SkipThreshold float64

	// Logger receives debug output; nil means no logging
	Logger *zap.Logger
}

// Scorer runs the scoring pipeline. It holds no per-dataset state and is
// safe for concurrent use.
type Scorer struct {
	opts   Options
	logger *zap.Logger
}

// NewScorer creates a Scorer, validating its options
func NewScorer(opts Options) (*Scorer, error) {
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	opts.Policy = policy

	if opts.TopK < 0 {
		return nil, fmt.Errorf("top-k must be >= 0, got %d", opts.TopK)
	}
	if opts.SkipThreshold < 0 || opts.SkipThreshold > 1 {
		return nil, fmt.Errorf("skip threshold must be within [0, 1], got %v", opts.SkipThreshold)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{opts: opts, logger: logger}, nil
}

// Options returns the effective options
func (s *Scorer) Options() Options {
	return s.opts
}

// SustainabilityScore is Yield / (Water_Use + Fertilizer_Use + 1).
// The +1 keeps the denominator at least 1 for non-negative usage.
func SustainabilityScore(yield, waterUse, fertilizerUse float64) float64 {
	return yield / (waterUse + fertilizerUse + 1)
}

// Score validates ds, scores every row and selects the recommendations.
// No partial report is returned on error.
func (s *Scorer) Score(ctx context.Context, ds *models.Dataset) (*models.Report, error) {
	if ds == nil {
		return nil, errors.NewEmptyDatasetError("", 0)
	}

	cols, err := resolveColumns(ds.Source, ds.Headers)
	if err != nil {
		return nil, err
	}

	if ds.Len() == 0 {
		return nil, errors.NewEmptyDatasetError(ds.Source, 0)
	}

	collector := errors.NewCollector(errors.CollectorConfig{
		ErrorThreshold: s.opts.SkipThreshold,
	})

	scored := make([]models.ScoredRecord, 0, ds.Len())
	var skipped []models.SkippedRecord

	for _, raw := range ds.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		collector.IncrementProcessed()

		rec, err := parseRecord(raw, cols)
		if err != nil {
			if s.opts.Policy == PolicyReject {
				return nil, err
			}

			_ = collector.Add(err, ds.Source, raw.LineNumber)
			skipped = append(skipped, toSkipped(raw.LineNumber, err))
			s.logger.Debug("skipping malformed row",
				zap.String("source", ds.Source),
				zap.Int("line", raw.LineNumber),
				zap.Error(err),
			)
			continue
		}

		scored = append(scored, models.ScoredRecord{
			FieldRecord: rec,
			Score:       SustainabilityScore(rec.Yield, rec.WaterUse, rec.FertilizerUse),
			Raw:         raw,
		})
	}

	if collector.ThresholdExceeded() {
		return nil, errors.NewProcessingError("score", ds.Source, 0,
			fmt.Errorf("%w: %d of %d rows skipped (limit %.1f%%)",
				errors.ErrSkipThresholdExceeded, collector.Count(), ds.Len(), s.opts.SkipThreshold*100))
	}

	if len(scored) == 0 {
		return nil, errors.NewEmptyDatasetError(ds.Source, len(skipped))
	}

	report := &models.Report{
		RunID:       uuid.NewString(),
		Source:      ds.Source,
		Policy:      string(s.opts.Policy),
		GeneratedAt: time.Now().UTC(),
		Headers:     ds.Headers,
		Scored:      scored,
		PerField:    bestPerField(scored),
		Best:        bestOverall(scored),
		Skipped:     skipped,
	}

	if s.opts.TopK > 0 {
		report.K = s.opts.TopK
		report.TopK = topKPerField(scored, s.opts.TopK)
	}

	s.logger.Debug("scored dataset",
		zap.String("run_id", report.RunID),
		zap.String("source", ds.Source),
		zap.Int("records", len(scored)),
		zap.Int("skipped", len(skipped)),
		zap.Int("fields", len(report.PerField)),
	)

	return report, nil
}

// Score is a convenience wrapper around NewScorer and Scorer.Score
func Score(ctx context.Context, ds *models.Dataset, opts Options) (*models.Report, error) {
	scorer, err := NewScorer(opts)
	if err != nil {
		return nil, err
	}
	return scorer.Score(ctx, ds)
}

func toSkipped(line int, err error) models.SkippedRecord {
	var mde *errors.MalformedDataError
	if errors.As(err, &mde) {
		return models.SkippedRecord{
			Line:   line,
			Column: mde.Column,
			Value:  mde.Value,
			Reason: mde.Reason,
		}
	}
	return models.SkippedRecord{Line: line, Reason: err.Error()}
}
