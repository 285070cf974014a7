// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/causal-kg/internal/convert"
	"github.com/pdiddy/causal-kg/internal/httputil"
	"github.com/pdiddy/causal-kg/internal/pipeline"
	"github.com/pdiddy/causal-kg/internal/search"
	"github.com/pdiddy/causal-kg/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <question>",
	Short: "Run every stage from a research question to causal graphs",
	Long: `Run chains search, acquire, convert, and extract for one research
question. Stage settings come from the configuration file; the flags below
override the most common ones.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	def := types.DefaultPipelineConfig()
	runCmd.Flags().Int("top-k", def.Search.TopK, "number of articles the model selects")
	runCmd.Flags().String("papers-dir", def.Acquisition.PapersDir, "base directory for papers")
	runCmd.Flags().String("graph-dir", def.Extraction.GraphDir, "directory for extraction output")
	runCmd.Flags().Int("max-chunks", 0, "process at most this many chunks per paper (0: all)")
	runCmd.Flags().Int("concurrency", def.Extraction.Concurrency, "extraction calls run at once")
	runCmd.Flags().String("model", def.Generation.Model, "model identifier")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd, map[string]string{
		"search.top_k":           "top-k",
		"acquisition.papers_dir": "papers-dir",
		"conversion.papers_dir":  "papers-dir",
		"extraction.papers_dir":  "papers-dir",
		"extraction.graph_dir":   "graph-dir",
		"extraction.max_chunks":  "max-chunks",
		"extraction.concurrency": "concurrency",
		"generation.model":       "model",
	})
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return err
	}
	conv, err := convert.NewConverter(cfg.Conversion)
	if err != nil {
		return err
	}

	stages := pipeline.Stages{
		Generator: gen,
		Database:  search.NewPubMed(httputil.NewClient(cfg.Search.HTTPConfig), cfg.Search),
		Client:    httputil.NewClient(cfg.Acquisition.HTTPConfig),
		Converter: conv,
	}

	sum, err := pipeline.Run(cmd.Context(), stages, strings.Join(args, " "), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if sum.HasFailures() {
		return fmt.Errorf("pipeline finished with failures: %d acquisition, %d conversion, %d extraction",
			sum.Acquire.Failed, sum.Convert.Failed, sum.Extract.Failed)
	}
	return nil
}
