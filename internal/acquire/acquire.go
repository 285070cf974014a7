// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire resolves article identifiers to full-text PDF URLs and
// downloads the PDFs under safe filenames.
// Implements: full-text resolution (Europe PMC); safe filenames;
//
//	PDF download batch with OK / SKIP / EXISTS / FAIL results.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/causal-kg/pkg/types"
)

const rawDir = "raw"

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Existing   int
	Skipped    int
	Failed     int
	Results    []types.DownloadResult
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Existing + r.Skipped + r.Failed
}

// HasFailures reports whether any download failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ResolveAll maps each identifier to a full-text PDF URL, in order. An
// identifier that cannot be resolved maps to "" so that SavePDFs reports
// it as SKIP.
func ResolveAll(ctx context.Context, client *http.Client, identifiers []string, w io.Writer) []string {
	urls := make([]string, len(identifiers))
	for i, id := range identifiers {
		u, err := FullTextURL(ctx, client, id)
		switch {
		case err != nil:
			fmt.Fprintf(w, "unresolved: %s (%v)\n", id, err)
		case u == "":
			fmt.Fprintf(w, "no full text: %s\n", id)
		default:
			urls[i] = u
		}
	}
	return urls
}

// AcquireBatch resolves identifiers (PMIDs, PMC IDs, DOIs, or URLs),
// downloads every PDF found, and prints a batch summary. It continues
// after individual failures.
func AcquireBatch(ctx context.Context, client *http.Client, identifiers []string, cfg types.AcquisitionConfig, w io.Writer) (BatchResult, error) {
	urls := ResolveAll(ctx, client, identifiers, w)

	results, err := SavePDFs(ctx, client, urls, cfg, w)
	batch := Summarize(results)
	if err != nil {
		return batch, err
	}

	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d existing, %d skipped, %d failed (total: %d)\n",
		batch.Downloaded, batch.Existing, batch.Skipped, batch.Failed, batch.Total())
	return batch, nil
}

// Summarize counts download results by status.
func Summarize(results []types.DownloadResult) BatchResult {
	b := BatchResult{Results: results}
	for _, r := range results {
		switch r.Status {
		case types.DownloadOK:
			b.Downloaded++
		case types.DownloadExists:
			b.Existing++
		case types.DownloadSkip:
			b.Skipped++
		case types.DownloadFail:
			b.Failed++
		}
	}
	return b
}
