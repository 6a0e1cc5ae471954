// Package main provides the semarch binary entry point.
// Semarch detects structural violations in system architecture models and
// searches for improved variants, either one-shot from the command line or
// as a NATS-hosted processor.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semarch/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semarch"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds the persistent root flags.
type globalOptions struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "semarch",
		Short: "Architecture optimization engine",
		Long: `Semarch analyzes system architecture models (systems, functions,
flows, requirements, modules) and searches for improved variants.

It provides:
- Violation detection (cardinality, volatility, traceability, duplication)
- Multi-objective scoring against a versioned rule-weight table
- Violation-guided local search with a bounded Pareto front

The serve command hosts the optimizer as a semstreams processor on NATS.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		detectCmd(opts),
		scoreCmd(opts),
		optimizeCmd(opts),
		exportCmd(opts),
		serveCmd(opts),
		openapiCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// newLogger builds the process logger. Logs go to stderr so command
// output on stdout stays machine-readable.
func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup configures logging and loads the layered configuration.
func (o *globalOptions) setup() (*config.Config, *slog.Logger, error) {
	logger := newLogger(o.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}
