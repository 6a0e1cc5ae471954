package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/c360studio/semarch/export"
	"github.com/c360studio/semarch/graph"
	"github.com/c360studio/semarch/search"
)

func exportCmd(opts *globalOptions) *cobra.Command {
	var (
		format  string
		profile string
		slug    string
		runID   string
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Optimize a document and write the run and its Pareto front as RDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			p, err := export.ParseProfile(profile)
			if err != nil {
				return err
			}

			cfg, logger, err := opts.setup()
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

			started := time.Now()
			res, err := search.Optimize(arch, cfg.Search, search.Options{
				Detector: detector,
				Scorer:   scorer,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			if slug == "" {
				slug = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if runID == "" {
				runID = uuid.NewString()
			}
			run := graph.RunSummary{
				RunID:       runID,
				Slug:        slug,
				Status:      "complete",
				Convergence: string(res.ConvergenceReason),
				Iterations:  res.Iterations,
				Success:     res.Success,
				CreatedAt:   started,
			}

			out, err := export.NewRunExporter(p, run, res, detector, started).Export(f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "turtle", "Output format (turtle, ntriples, jsonld)")
	cmd.Flags().StringVar(&profile, "profile", "minimal", "Ontology profile (minimal, bfo, cco)")
	cmd.Flags().StringVar(&slug, "slug", "", "Architecture name (default: file name)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: random UUID)")

	return cmd
}
