package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dichn/ubi-manifest/internal/config"
)

var (
	flagConfig             string
	flagContentServiceAddr string
	flagLogLevel           string
	flagBatchSize          int

	logger  *zap.Logger
	process config.Process
)

// rootCmd is the base command, grounded in open-platform-model-cli's
// cmd/opm/root.go: persistent flags plus a PersistentPreRunE that wires
// logging and config before any subcommand runs.
var rootCmd = &cobra.Command{
	Use:   "depsolver",
	Short: "Resolve UBI manifest dependencies against content-service repos",
	Long: `depsolver resolves a whitelist of base packages plus their full
transitive dependency closure against a set of content-service repositories,
honoring blacklists and modular-stream policy, and exports the resulting
RPM/SRPM selection partitioned by repo.`,
	PersistentPreRunE: initializeGlobals,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file (env: UBI_MANIFEST_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagContentServiceAddr, "content-service-addr", "", "content-service endpoint (env: UBI_MANIFEST_CONTENT_SERVICE_ADDR)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (env: UBI_MANIFEST_LOG_LEVEL)")
	rootCmd.PersistentFlags().IntVar(&flagBatchSize, "batch-size", 0, "max atoms resolved per fixed-point iteration (env: UBI_MANIFEST_BATCH_SIZE)")

	rootCmd.AddCommand(newResolveCmd())
}

// initializeGlobals sets up logging and config based on global flags, the
// same ordering root.go's initializeGlobals follows: config first, so
// logging can pick up the resolved level.
func initializeGlobals(cmd *cobra.Command, _ []string) error {
	p, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagContentServiceAddr != "" {
		p.ContentServiceAddr = flagContentServiceAddr
	}
	if flagLogLevel != "" {
		p.LogLevel = flagLogLevel
	}
	if flagBatchSize != 0 {
		p.BatchSize = flagBatchSize
	}
	process = p

	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(process.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", process.LogLevel, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger = built

	logger.Debug("depsolver starting",
		zap.String("content_service_addr", process.ContentServiceAddr),
		zap.Int("batch_size", process.BatchSize),
	)
	return nil
}
