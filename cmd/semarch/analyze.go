package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/config"
	"github.com/c360studio/semarch/search"
)

func detectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Print the violations of an architecture document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.setup()
			if err != nil {
				return err
			}
			arch, err := readArchitecture(args[0])
			if err != nil {
				return err
			}
			detector, err := cfg.Detector()
			if err != nil {
				return err
			}
			violations := detector.Detect(arch)
			if violations == nil {
				violations = []architecture.Violation{}
			}
			return writeJSON(cmd.OutOrStdout(), violations)
		},
	}
}

// scoreReport is the output of the score command.
type scoreReport struct {
	File       string                   `json:"file"`
	Score      architecture.ScoreResult `json:"score"`
	Violations int                      `json:"violations"`
	Acceptable bool                     `json:"acceptable"`
}

func scoreCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <file>",
		Short: "Score an architecture document against the rule-weight table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.setup()
			if err != nil {
				return err
			}
			arch, err := readArchitecture(args[0])
			if err != nil {
				return err
			}
			detector, err := cfg.Detector()
			if err != nil {
				return err
			}
			scorer, err := cfg.Scorer()
			if err != nil {
				return err
			}
			violations := detector.Detect(arch)
			score := scorer.Score(arch, violations)
			return writeJSON(cmd.OutOrStdout(), scoreReport{
				File:       args[0],
				Score:      score,
				Violations: len(violations),
				Acceptable: score.Acceptable(),
			})
		},
	}
}

// optimizeFlags holds per-invocation overrides for the optimize command.
type optimizeFlags struct {
	seed          int64
	maxIterations int
	weights       string
	parallel      int
	noTrace       bool
}

// fileResult is one document of the optimize command's output.
type fileResult struct {
	File   string         `json:"file"`
	Result *search.Result `json:"result"`
}

func optimizeCmd(opts *globalOptions) *cobra.Command {
	flags := &optimizeFlags{}

	cmd := &cobra.Command{
		Use:   "optimize <glob>...",
		Short: "Search for improved variants of one or more architecture documents",
		Long: `Optimize runs an independent search for every document matched by the
given patterns. Patterns support ** (doublestar). One JSON result is written
per file, in sorted path order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Search.RandomSeed = flags.seed
			}
			if flags.maxIterations > 0 {
				cfg.Search.MaxIterations = flags.maxIterations
			}
			if flags.weights != "" {
				cfg.Scoring.WeightsPath = flags.weights
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			files, err := expandInputs(args)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			results, err := optimizeFiles(ctx, cfg, files, flags.parallel, logger)
			if err != nil {
				return err
			}
			for _, r := range results {
				if flags.noTrace {
					r.Result.Trace = nil
				}
				if err := writeJSON(cmd.OutOrStdout(), r); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Random seed (overrides config)")
	cmd.Flags().IntVar(&flags.maxIterations, "max-iterations", 0, "Iteration budget (overrides config)")
	cmd.Flags().StringVar(&flags.weights, "weights", "", "Rule-weight table (YAML)")
	cmd.Flags().IntVar(&flags.parallel, "parallel", runtime.NumCPU(), "Maximum concurrent runs")
	cmd.Flags().BoolVar(&flags.noTrace, "no-trace", false, "Omit the per-iteration trace from results")

	return cmd
}

// optimizeFiles runs one search per file. Runs share nothing and are
// executed concurrently; results keep the order of files. A cancelled
// context interrupts every run between iterations.
func optimizeFiles(ctx context.Context, cfg *config.Config, files []string, parallel int, logger *slog.Logger) ([]fileResult, error) {
	detector, err := cfg.Detector()
	if err != nil {
		return nil, err
	}
	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, file := range files {
		g.Go(func() error {
			arch, err := readArchitecture(file)
			if err != nil {
				return err
			}
			res, err := search.Optimize(arch, cfg.Search, search.Options{
				Detector: detector,
				Scorer:   scorer,
				Logger:   logger.With("file", file),
				Hooks: search.Hooks{
					Interrupt: func(int) bool { return ctx.Err() != nil },
				},
			})
			if err != nil {
				return fmt.Errorf("optimize %s: %w", file, err)
			}
			results[i] = fileResult{File: file, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// expandInputs resolves doublestar patterns to a sorted, de-duplicated
// file list. A pattern without glob metacharacters names a file directly.
func expandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func readArchitecture(path string) (*architecture.Architecture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read architecture: %w", err)
	}
	arch, err := architecture.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return arch, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
