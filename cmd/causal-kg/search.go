// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/causal-kg/internal/httputil"
	"github.com/pdiddy/causal-kg/internal/search"
	"github.com/pdiddy/causal-kg/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Find and select PubMed reviews for a research question",
	Long: `Search asks the model for a PubMed search strategy, fetches the matching
review articles with their citation counts, and asks the model to select the
most relevant ones. The run is recorded under the search output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	def := types.DefaultPipelineConfig()
	searchCmd.Flags().Int("max-results", def.Search.MaxResults, "number of PubMed records to fetch")
	searchCmd.Flags().Int("top-k", def.Search.TopK, "number of articles the model selects")
	searchCmd.Flags().String("output-dir", def.Search.OutputDir, "directory for search run records")
	searchCmd.Flags().String("model", def.Generation.Model, "model identifier")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd, map[string]string{
		"search.max_results": "max-results",
		"search.top_k":       "top-k",
		"search.output_dir":  "output-dir",
		"generation.model":   "model",
	})
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return err
	}
	db := search.NewPubMed(httputil.NewClient(cfg.Search.HTTPConfig), cfg.Search)

	out := cmd.OutOrStdout()
	run, err := search.Run(cmd.Context(), gen, db, strings.Join(args, " "), cfg.Search, out)
	if err != nil {
		return err
	}

	path, err := search.WriteRun(cfg.Search.OutputDir, run)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	search.FormatTable(run, out)
	fmt.Fprintf(os.Stderr, "Search run written to %s\n", path)
	return nil
}
