// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/causal-kg/internal/acquire"
	"github.com/pdiddy/causal-kg/internal/httputil"
	"github.com/pdiddy/causal-kg/internal/search"
	"github.com/pdiddy/causal-kg/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [identifiers...]",
	Short: "Download full-text PDFs from PMIDs, PMC IDs, DOIs, or URLs",
	Long: `Acquire resolves article identifiers (PMIDs, PMC IDs, DOIs, direct PDF
URLs) to open-access PDFs through Europe PMC and downloads them into
papers/raw/. Existing files are skipped unless --overwrite is set.

Without arguments, the articles selected by a search run are acquired
(--from-run, default the most recent run).`,
	RunE: runAcquire,
}

func init() {
	def := types.DefaultPipelineConfig()
	acquireCmd.Flags().Duration("timeout", def.Acquisition.Timeout, "HTTP request timeout")
	acquireCmd.Flags().Duration("delay", def.Acquisition.DownloadDelay, "delay between consecutive downloads")
	acquireCmd.Flags().String("papers-dir", def.Acquisition.PapersDir, "base directory for papers")
	acquireCmd.Flags().Bool("overwrite", false, "replace PDFs that already exist")
	acquireCmd.Flags().Bool("validate", false, "check downloaded PDFs are structurally valid")
	acquireCmd.Flags().String("from-run", "", "search run record to acquire (default: latest in the search directory)")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd, map[string]string{
		"acquisition.timeout":        "timeout",
		"acquisition.download_delay": "delay",
		"acquisition.papers_dir":     "papers-dir",
		"acquisition.overwrite":      "overwrite",
		"acquisition.validate":       "validate",
	})
	if err != nil {
		return err
	}

	ids := args
	if len(ids) == 0 {
		fromRun, _ := cmd.Flags().GetString("from-run")
		ids, err = runIdentifiers(fromRun, cfg.Search.OutputDir)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("the search run selected no articles")
		}
	}

	client := httputil.NewClient(cfg.Acquisition.HTTPConfig)
	result, err := acquire.AcquireBatch(cmd.Context(), client, ids, cfg.Acquisition, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed acquisition", result.Failed)
	}
	return nil
}

// runIdentifiers loads the selected identifiers of a search run. An empty
// path picks the latest run in searchDir.
func runIdentifiers(path, searchDir string) ([]string, error) {
	if path == "" {
		latest, err := search.LatestRun(searchDir)
		if err != nil {
			return nil, fmt.Errorf("provide identifiers or run search first: %w", err)
		}
		path = latest
	}
	run, err := search.ReadRun(path)
	if err != nil {
		return nil, err
	}
	return search.Identifiers(run), nil
}
