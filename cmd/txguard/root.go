package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath   string
	envFiles     []string
	artifactsDir string
	logLevel     string
	logFormat    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "txguard",
		Short:        "Transaction anomaly scoring",
		Long:         "txguard scores card transactions with an isolation forest over engineered features.",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (yaml or json)")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading TXGUARD_* variables")
	flags.StringVar(&opts.artifactsDir, "models", "", "directory holding the model and scaler (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json (overrides config)")

	cmd.AddCommand(
		newServeCmd(opts),
		newScoreCmd(opts),
		newTrainCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// load resolves the effective configuration and builds the logger.
// Overrides run after flags, files and environment are applied.
func (o *globalOptions) load(overrides ...func(*config.Config)) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return nil, nil, err
	}

	if o.artifactsDir != "" {
		cfg.Artifacts.Source = config.SourceLocal
		cfg.Artifacts.Dir = o.artifactsDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	for _, fn := range overrides {
		fn(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "txguard %s\n", version)
		},
	}
}
