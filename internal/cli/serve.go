package cli

import (
	"github.com/spf13/cobra"

	"github.com/zuhrulumam/cropscore/internal/server"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring API over HTTP",
		Long: `Start the upload server:

  POST /api/v1/score   CSV in (raw body or multipart "file"), JSON report out
  POST /api/v1/chart   CSV in, PNG bar chart out
  GET  /healthz
  GET  /metrics        Prometheus metrics

Query parameters policy, top_k and skip_threshold override the configured
scoring defaults per request.`,
		Example: `  cropscore serve --addr :9090 --max-concurrent 4
  curl --data-binary @fields.csv -H 'Content-Type: text/csv' localhost:8080/api/v1/score`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			opts := cfg.ScoringOptions()
			opts.Logger = logger

			srv, err := server.New(server.Config{
				Addr:            cfg.Server.Addr,
				MaxUploadBytes:  cfg.Server.MaxUploadBytes,
				MaxRecords:      cfg.Server.MaxRecords,
				MaxConcurrent:   cfg.Server.MaxConcurrent,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				Scoring:         opts,
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	addScoringFlags(cmd)
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Int64("max-upload-bytes", 0, "largest accepted request body (default 10 MiB)")
	cmd.Flags().Int("max-records", 0, "largest accepted number of data rows (0 = unlimited)")
	cmd.Flags().Int("max-concurrent", 0, "uploads scored at once (default 8)")
	cmd.Flags().Duration("shutdown-timeout", 0, "graceful shutdown limit (default 10s)")

	return cmd
}
