// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/causal-kg/internal/convert"
	"github.com/pdiddy/causal-kg/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Extract plain text from downloaded PDFs",
	Long: `Convert runs pdftotext over PDFs and writes the text of all pages, in
order, to papers/text/<name>.txt. Without arguments every PDF in papers/raw/
is converted; PDFs whose text already exists are skipped.

The pdftotext backend uses the host binary and falls back to a container
when it is missing; the container backend always runs pdftotext in --image
through docker or podman.`,
	RunE: runConvert,
}

func init() {
	def := types.DefaultPipelineConfig()
	convertCmd.Flags().String("backend", string(def.Conversion.Backend), "conversion backend: pdftotext or container")
	convertCmd.Flags().String("image", def.Conversion.Image, "container image providing pdftotext")
	convertCmd.Flags().String("papers-dir", def.Conversion.PapersDir, "base directory for papers")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd, map[string]string{
		"conversion.backend":    "backend",
		"conversion.image":      "image",
		"conversion.papers_dir": "papers-dir",
	})
	if err != nil {
		return err
	}

	conv, err := convert.NewConverter(cfg.Conversion)
	if err != nil {
		return err
	}

	pdfs := args
	if len(pdfs) == 0 {
		pdfs, err = convert.ListPDFs(cfg.Conversion.PapersDir)
		if err != nil {
			return err
		}
	}

	result := convert.ConvertBatch(cmd.Context(), conv, pdfs, cfg.Conversion.PapersDir, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed conversion", result.Failed)
	}
	return nil
}
