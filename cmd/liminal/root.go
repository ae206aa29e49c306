package main

import (
	"context"
	"log/slog"

	"github.com/amp-labs/liminal/bgworker"
	"github.com/amp-labs/liminal/logger"
	"github.com/amp-labs/liminal/shutdown"
	"github.com/amp-labs/liminal/statemachine"
	"github.com/amp-labs/liminal/telemetry"
	"github.com/spf13/cobra"
)

const subsystem = "liminal"

var (
	envFile   string                                            //nolint:gochecknoglobals
	appConfig = &Config{MaxDepth: statemachine.DefaultMaxDepth} //nolint:gochecknoglobals
)

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "liminal",
	Short: "Validate, draw and run state machine tables",
	Long: `liminal works with declarative transition tables: it checks them for
structural mistakes, renders them as Mermaid diagrams and runs the bundled
SARS-CoV-2 assay machine against sequence samples.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Context())
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file")
}

// setup configures logging, telemetry and the worker pool from the
// environment. Telemetry providers are flushed by the shutdown hooks.
func setup(ctx context.Context) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	out, err := logger.ParseOutput(cfg.LogOutput)
	if err != nil {
		return err
	}

	opts := logger.Options{
		Subsystem:   subsystem,
		JSON:        cfg.LogJSON,
		MinLevel:    cfg.LogLevel,
		LegacyLevel: slog.LevelInfo,
		Output:      out,
	}

	logger.ConfigureLoggingWithOptions(opts)

	telemetryConfig, err := telemetry.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	if err := telemetry.Initialize(ctx, telemetryConfig); err != nil {
		return err
	}

	shutdown.BeforeShutdown("telemetry", telemetry.Shutdown)

	if tee := telemetry.LogHandler(subsystem); tee != nil {
		opts.Tee = tee
		logger.ConfigureLoggingWithOptions(opts)
	}

	if !bgworker.Configure(cfg.Workers) {
		logger.Get(ctx).Debug("worker pool already configured", "workers", cfg.Workers)
	}

	appConfig = cfg

	return nil
}

func newEngine(table *statemachine.Table) *statemachine.Engine {
	return statemachine.NewEngine(table, statemachine.WithMaxDepth(appConfig.MaxDepth))
}
