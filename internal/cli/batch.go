package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zuhrulumam/cropscore/internal/models"
	"github.com/zuhrulumam/cropscore/internal/pipeline"
	"github.com/zuhrulumam/cropscore/internal/processor"
	"github.com/zuhrulumam/cropscore/internal/reader"
	"github.com/zuhrulumam/cropscore/internal/render"
	"github.com/zuhrulumam/cropscore/internal/scoring"
)

func (a *app) newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch file.csv [file.csv ...]",
		Short: "Score many CSV files concurrently",
		Long: `Score each file independently on a pool of workers. Every file gets its
own report. Files that fail are listed in an error summary at the end and
make the command exit non-zero.`,
		Example: `  cropscore batch --workers 8 fields/*.csv
  cropscore batch --abort-on-error -o json north.csv south.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			abort, _ := cmd.Flags().GetBool("abort-on-error")
			quiet, _ := cmd.Flags().GetBool("quiet")

			opts := cfg.ScoringOptions()
			opts.Logger = logger
			scorer, err := scoring.NewScorer(opts)
			if err != nil {
				return err
			}

			renderer, err := render.New(cfg.RenderOptions())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			pipe, err := pipeline.NewPipeline(pipeline.Config{
				Files:          args,
				Workers:        cfg.Workers,
				Processor:      processor.NewScoringProcessor(scorer, reader.Config{}, logger),
				Handler:        reportHandler(out, renderer),
				AbortOnError:   abort,
				ShowProgress:   !quiet,
				VerboseOutput:  cfg.Verbose,
				ProgressWriter: errOut,
				ErrorWriter:    errOut,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			if !quiet {
				printStartupInfo(errOut, len(args), cfg.Workers, string(opts.Policy))
			}

			// The pipeline prints the final tally through its progress tracker
			if err := pipe.Run(cmd.Context()); err != nil {
				return err
			}

			summary := pipe.Summary()
			if summary.FailedCount > 0 {
				return fmt.Errorf("%d of %d files failed", summary.FailedCount, summary.TotalFiles)
			}
			return nil
		},
	}

	addScoringFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output format (text|json|yaml|csv|markdown)")
	cmd.Flags().Int("precision", 0, "decimal places for scores (default 2)")
	cmd.Flags().Int("workers", 0, "files scored at once (default 4)")
	cmd.Flags().Bool("abort-on-error", false, "stop at the first file that fails")
	cmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")

	return cmd
}

// reportHandler renders each scored file in completion order
func reportHandler(out io.Writer, renderer render.Renderer) processor.ResultHandler {
	return processor.ResultHandlerFunc(func(result *models.Result) error {
		if !result.IsSuccess() || result.Report == nil {
			return nil
		}
		if err := renderer.Render(out, result.Report); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out)
		return err
	})
}

// printStartupInfo prints startup information
func printStartupInfo(w io.Writer, files, workers int, policy string) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "cropscore batch")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Files:          %d\n", files)
	fmt.Fprintf(w, "Workers:        %d\n", workers)
	fmt.Fprintf(w, "Row policy:     %s\n", policy)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w)
}
