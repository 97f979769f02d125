package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zuhrulumam/cropscore/internal/chart"
	"github.com/zuhrulumam/cropscore/internal/config"
	"github.com/zuhrulumam/cropscore/internal/export"
	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/reader"
	"github.com/zuhrulumam/cropscore/internal/render"
	"github.com/zuhrulumam/cropscore/internal/scoring"
)

// stdinName is the file argument that selects standard input
const stdinName = "-"

func (a *app) newScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [file.csv]",
		Short: "Score one CSV file and print the recommendations",
		Long: `Score one CSV file and print the scored rows, the best crop per field,
the top-K crops per field and the best crop overall.

Reads standard input when the file is omitted or "-".`,
		Example: `  cropscore score fields.csv
  cropscore score --policy skip -o json fields.csv
  cropscore score --chart scores.png --xlsx report.xlsx fields.csv
  cat fields.csv | cropscore score -o markdown
  cropscore score --watch fields.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := stdinName
			if len(args) == 1 {
				path = args[0]
			}

			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			watch, _ := cmd.Flags().GetBool("watch")
			if watch && path == stdinName {
				return fmt.Errorf("--watch needs a file argument")
			}

			run := func(ctx context.Context) error {
				return scoreFile(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), path, cfg, logger)
			}

			if watch {
				return watchFile(cmd.Context(), path, watchDebounce, logger, run)
			}
			return run(cmd.Context())
		},
	}

	addScoringFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output format (text|json|yaml|csv|markdown)")
	cmd.Flags().Int("precision", 0, "decimal places for scores in text, csv and markdown output (default 2)")
	cmd.Flags().Int("preview", 0, "input rows shown in text output (default 5)")
	cmd.Flags().String("chart", "", "write a bar chart of the scores (.png or .svg)")
	cmd.Flags().String("xlsx", "", "write the report as an Excel workbook")
	cmd.Flags().Bool("watch", false, "re-score whenever the file changes")

	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(render.Formats))
		for i, f := range render.Formats {
			names[i] = string(f)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("policy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(scoring.PolicyReject), string(scoring.PolicySkip)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// scoreFile reads path (or stdin), scores it and writes every configured output
func scoreFile(ctx context.Context, stdin io.Reader, out io.Writer, path string, cfg *config.Config, logger *zap.Logger) error {
	opts := cfg.ScoringOptions()
	opts.Logger = logger

	ds, err := readInput(ctx, stdin, path)
	if err != nil {
		return err
	}

	report, err := scoring.Score(ctx, ds, opts)
	if err != nil {
		return err
	}

	return writeOutputs(out, report, cfg, logger)
}

func readInput(ctx context.Context, stdin io.Reader, path string) (*models.Dataset, error) {
	if path == stdinName {
		return reader.NewCSVReader(reader.Config{Source: "stdin"}).Read(ctx, stdin)
	}
	return reader.ReadFile(ctx, path, reader.Config{})
}

// writeOutputs renders report to out and saves the chart and workbook when configured
func writeOutputs(out io.Writer, report *models.Report, cfg *config.Config, logger *zap.Logger) error {
	if err := render.Write(out, report, cfg.RenderOptions()); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if cfg.ChartPath != "" {
		if err := chart.Save(report, cfg.ChartPath, chart.DefaultOptions()); err != nil {
			return fmt.Errorf("chart: %w", err)
		}
		logger.Info("wrote chart", zap.String("path", cfg.ChartPath))
	}

	if cfg.XLSXPath != "" {
		if err := export.Save(report, cfg.XLSXPath); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		logger.Info("wrote workbook", zap.String("path", cfg.XLSXPath))
	}

	return nil
}
