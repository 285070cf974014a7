// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/causal-kg/internal/extract"
	"github.com/pdiddy/causal-kg/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract causal triples from converted papers",
	Long: `Extract segments each papers/text/*.txt file into sentence-aligned chunks,
asks the model which causal relationship types each chunk contains, and
extracts one JSON triple per (chunk, type). Results, including unparsed
model responses, are written to graph/<name>-causal.yaml. Papers whose
output is newer than their text are skipped.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	def := types.DefaultPipelineConfig()
	extractCmd.Flags().String("papers-dir", def.Extraction.PapersDir, "base directory for papers (contains text/)")
	extractCmd.Flags().String("graph-dir", def.Extraction.GraphDir, "directory for extraction output")
	extractCmd.Flags().Int("chunk-size", def.Extraction.ChunkSize, "maximum chunk length in characters")
	extractCmd.Flags().Int("max-chunks", 0, "process at most this many chunks per paper (0: all)")
	extractCmd.Flags().Int("concurrency", def.Extraction.Concurrency, "extraction calls run at once")
	extractCmd.Flags().Bool("dedup-types", false, "skip causal types already extracted for an earlier chunk")
	extractCmd.Flags().String("model", def.Generation.Model, "model identifier")

	rootCmd.AddCommand(extractCmd)
}

// extractFlagKeys maps extraction config keys to flags.
var extractFlagKeys = map[string]string{
	"extraction.papers_dir":  "papers-dir",
	"extraction.graph_dir":   "graph-dir",
	"extraction.chunk_size":  "chunk-size",
	"extraction.max_chunks":  "max-chunks",
	"extraction.concurrency": "concurrency",
	"extraction.dedup_types": "dedup-types",
	"generation.model":       "model",
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd, extractFlagKeys)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return err
	}

	summary, err := extract.ExtractAll(cmd.Context(), gen, cfg.Extraction, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed extraction", summary.Failed)
	}
	return nil
}
