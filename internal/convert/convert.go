// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts the plain text of downloaded PDFs.
// Implements: PDF text extraction (papers/raw/*.pdf to papers/text/*.txt)
//
//	with pluggable backends.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/causal-kg/internal/pdfutil"
)

const (
	// textDir is the subdirectory under the papers base for text output.
	textDir = "text"
	// rawDir is the subdirectory under the papers base for raw PDFs.
	rawDir = "raw"
)

// pageCount reads the page count of a PDF. Tests replace it so that fake
// PDFs reach the converter.
var pageCount = pdfutil.PageCount

// Converter extracts the text of every page of a PDF, in page order.
type Converter interface {
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// Status is the outcome of converting one PDF.
type Status int

const (
	StatusConverted Status = iota
	StatusSkipped
	StatusFailed
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of papers processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any papers failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// TextPath returns where the text of pdfPath is written under papersDir.
func TextPath(papersDir, pdfPath string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return filepath.Join(papersDir, textDir, base+".txt")
}

// ConvertFile converts one PDF and writes its text under papersDir/text.
// Existing output is kept. A PDF whose page count cannot be read fails
// without reaching the converter.
func ConvertFile(ctx context.Context, c Converter, pdfPath, papersDir string, w io.Writer) Status {
	txtPath := TextPath(papersDir, pdfPath)
	base := strings.TrimSuffix(filepath.Base(txtPath), ".txt")

	if _, err := os.Stat(txtPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", base)
		return StatusSkipped
	}

	pages, err := pageCount(pdfPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	if err := os.MkdirAll(filepath.Dir(txtPath), 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	text, err := c.Convert(ctx, pdfPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "converted: %s (%d pages, %d chars)\n", base, pages, len([]rune(text)))
	return StatusConverted
}

// ConvertBatch converts pdfPaths in order, printing per-file status to w
// and returning a summary. It stops early when ctx is cancelled.
func ConvertBatch(ctx context.Context, c Converter, pdfPaths []string, papersDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pdfPaths {
		if ctx.Err() != nil {
			break
		}
		switch ConvertFile(ctx, c, p, papersDir, w) {
		case StatusConverted:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// ListPDFs returns the PDFs in papersDir/raw, sorted by name.
func ListPDFs(papersDir string) ([]string, error) {
	dir := filepath.Join(papersDir, rawDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
