// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline chains the stages from a research question to causal
// graphs on disk: search, acquire, convert, extract.
// Implements: the "run" command (end-to-end pipeline).
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/causal-kg/internal/acquire"
	"github.com/pdiddy/causal-kg/internal/convert"
	"github.com/pdiddy/causal-kg/internal/extract"
	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/internal/search"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// Stages holds the collaborators each stage needs.
type Stages struct {
	Generator llm.Generator
	Database  search.Database
	Client    *http.Client
	Converter convert.Converter
}

// Summary reports what each stage did.
type Summary struct {
	Run     *types.SearchRun
	RunPath string
	Acquire acquire.BatchResult
	Convert convert.BatchResult
	Extract extract.BatchSummary
}

// HasFailures reports whether any stage had per-item failures.
func (s Summary) HasFailures() bool {
	return s.Acquire.HasFailures() || s.Convert.HasFailures() || s.Extract.HasFailures()
}

// Run answers question end to end. The search run record is written before
// acquisition starts. When the model selects nothing, Run stops after the
// search stage. Per-item failures in later stages are counted in the
// summary; Run only returns an error when a stage cannot proceed at all.
func Run(ctx context.Context, st Stages, question string, cfg types.PipelineConfig, w io.Writer) (Summary, error) {
	var sum Summary

	fmt.Fprintln(w, "[search]")
	run, err := search.Run(ctx, st.Generator, st.Database, question, cfg.Search, w)
	if err != nil {
		return sum, err
	}
	sum.Run = run

	path, err := search.WriteRun(cfg.Search.OutputDir, run)
	if err != nil {
		return sum, err
	}
	sum.RunPath = path
	fmt.Fprintf(w, "search run written to %s\n", path)

	ids := search.Identifiers(run)
	if len(ids) == 0 {
		fmt.Fprintln(w, "no articles selected; stopping")
		return sum, nil
	}

	fmt.Fprintln(w, "\n[acquire]")
	sum.Acquire, err = acquire.AcquireBatch(ctx, st.Client, ids, cfg.Acquisition, w)
	if err != nil {
		return sum, err
	}

	fmt.Fprintln(w, "\n[convert]")
	pdfs, err := convert.ListPDFs(cfg.Conversion.PapersDir)
	if err != nil {
		return sum, err
	}
	sum.Convert = convert.ConvertBatch(ctx, st.Converter, pdfs, cfg.Conversion.PapersDir, w)

	fmt.Fprintln(w, "\n[extract]")
	sum.Extract, err = extract.ExtractAll(ctx, st.Generator, cfg.Extraction, w)
	if err != nil {
		return sum, err
	}
	return sum, nil
}
