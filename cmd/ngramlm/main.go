package main

import (
	"context"
	"fmt"
	"os"

	"ngramlm/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

func rootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:           "ngramlm",
		Short:         "train, sample and evaluate n-gram language models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.App.LogLevel, verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level in development format")

	cmd.AddCommand(trainCmd(), generateCmd(), evalCmd(), serveCmd(), exportGraphCmd())
	return cmd
}

// newLogger logs to stderr so that command output on stdout stays clean
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		cfgZap := zap.NewDevelopmentConfig()
		cfgZap.OutputPaths = []string{"stderr"}
		return cfgZap.Build()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfgZap := zap.NewProductionConfig()
	cfgZap.Level.SetLevel(lvl)
	cfgZap.OutputPaths = []string{"stderr"}
	return cfgZap.Build()
}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
