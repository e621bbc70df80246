package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"housingprep/internal/logging"
	"housingprep/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the preparation pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadConfig(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			level := p.Logging.Level
			if rootOpts.Verbose {
				level = "debug"
			}
			logger, err := logging.New(level, p.Logging.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			closeMetrics := setupMetrics(cmd.Context(), p, rootOpts, logger)
			defer closeMetrics()

			res, err := pipeline.NewRunner(p, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.Debug("sink", zap.String("kind", p.Sink.Kind), zap.String("path", p.Sink.Path), zap.String("table", p.Sink.Table))
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d records persisted\n", res.RunID, res.Output.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&rootOpts.MetricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides metrics.backend and METRICS_BACKEND)")
	cmd.Flags().StringVar(&rootOpts.PushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides metrics.pushgateway_url and PUSHGATEWAY_URL)")
	return cmd
}
