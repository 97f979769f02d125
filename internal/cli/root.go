// Package cli provides the cropscore command-line interface.
package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zuhrulumam/cropscore/internal/config"
	"github.com/zuhrulumam/cropscore/internal/errors"
	"github.com/zuhrulumam/cropscore/internal/logging"
)

// BuildInfo is stamped into the binary at build time
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1

	// ExitDataset means the input CSV was rejected: missing columns,
	// malformed rows or no usable records
	ExitDataset = 2
)

// ExitCode maps the error returned by the root command to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsDatasetError(err):
		return ExitDataset
	default:
		return ExitFailure
	}
}

// app carries state shared by every subcommand
type app struct {
	info    BuildInfo
	cfgFile string
}

// NewRootCmd creates the root command and its subcommands
func NewRootCmd(info BuildInfo) *cobra.Command {
	a := &app{info: info}

	rootCmd := &cobra.Command{
		Use:   "cropscore",
		Short: "Crop sustainability scoring",
		Long: `cropscore scores crop rows by Yield / (Water_Use + Fertilizer_Use + 1),
recommends the best crop per field and the best crop overall.

Input is a CSV with the columns Field, Crop, Yield, Water_Use and
Fertilizer_Use, in any order. Extra columns are carried through.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./cropscore.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "log encoding (console|json)")

	rootCmd.AddCommand(
		a.newScoreCommand(),
		a.newBatchCommand(),
		a.newServeCommand(),
		a.newVersionCommand(),
	)

	return rootCmd
}

// setup loads configuration for cmd and builds its logger
func (a *app) setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{
		Verbose: cfg.Verbose,
		Format:  cfg.LogFormat,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.File != "" {
		logger.Debug("using config file", zap.String("path", cfg.File))
	}

	return cfg, logger, nil
}

// addScoringFlags registers the flags shared by score, batch and serve
func addScoringFlags(cmd *cobra.Command) {
	cmd.Flags().String("policy", "", "malformed row policy (reject|skip)")
	cmd.Flags().Int("top-k", 0, "rows ranked per field (0 disables the top-K table)")
	cmd.Flags().Float64("skip-threshold", 0, "fail when more than this fraction of rows is skipped (0 = off)")
}

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout(), a.info)
		},
	}
}

// printVersion prints version information
func printVersion(w io.Writer, info BuildInfo) {
	fmt.Fprintf(w, "cropscore version %s\n", info.Version)
	fmt.Fprintf(w, "Build time: %s\n", info.BuildTime)
	fmt.Fprintf(w, "Git commit: %s\n", info.GitCommit)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
