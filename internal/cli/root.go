package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/config"
	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

// runtime carries what PersistentPreRunE prepared to the subcommands.
type runtime struct {
	build    Builder
	cfg      *config.Config
	log      *zap.Logger
	shutdown func()
}

func (rt *runtime) app(ctx context.Context, opts BuildOptions) (*App, error) {
	return rt.build(ctx, rt.cfg, rt.log, opts)
}

// NewRootCmd builds the resumatch command tree. build wires the pipelines once a
// subcommand needs them.
func NewRootCmd(build Builder) *cobra.Command {
	rt := &runtime{build: build}

	cmd := &cobra.Command{
		Use:           "resumatch",
		Short:         "Resume screening assistant",
		Long:          "Ingests PDF resumes into a vector store and scores candidates against job descriptions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.ApplyFlags(cmd.Flags())

			log, err := logger.New(cfg.LogJSON, cfg.Debug)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}

			shutdown, err := telemetry.Init(telemetry.Config{
				DSN:              cfg.SentryDSN,
				Environment:      cfg.Environment,
				TracesSampleRate: sampleRate(cfg.Environment),
				Debug:            cfg.Debug,
			}, log)
			if err != nil {
				log.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
				shutdown = func() {}
			}

			rt.cfg, rt.log, rt.shutdown = cfg, log, shutdown
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.shutdown != nil {
				rt.shutdown()
			}
			if rt.log != nil {
				_ = rt.log.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("resume-dir", "", "Directory holding resume PDFs")
	flags.String("store", "", "Vector store backend: pgvector, sqlite or memory")
	flags.String("store-path", "", "Data directory of the sqlite store")
	flags.String("collection", "", "Vector store collection name")
	flags.String("provider", "", "Language model provider: openai or gemini")

	AddHelpJSONFlag(cmd)
	cmd.AddCommand(serveCmd(rt))
	cmd.AddCommand(ingestCmd(rt))
	cmd.AddCommand(analyzeCmd(rt))
	cmd.AddCommand(resumesCmd(rt))

	return cmd
}

// sampleRate samples every trace outside production and 10% in it.
func sampleRate(environment string) float64 {
	if environment == "production" {
		return 0.1
	}
	return 1.0
}
