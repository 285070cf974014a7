// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/causal-kg/internal/httputil"
	"github.com/pdiddy/causal-kg/internal/pdfutil"
	"github.com/pdiddy/causal-kg/pkg/types"
)

const manifestName = "manifest.yaml"

// sniffLen is how many leading bytes are inspected to recognise a PDF.
const sniffLen = 3072

// ErrNotPDF is returned when a URL answers with something other than a PDF.
var ErrNotPDF = errors.New("not a PDF")

// DownloadPDF fetches rawURL into destPath. A HEAD probe runs first; a 404
// or 410 answer fails fast, any other outcome falls through to GET. The GET
// must return 200, and the response is accepted when its Content-Type names
// application/pdf, the URL ends in ".pdf", or the body sniffs as a PDF. An
// HTML Content-Type or HTML body is always rejected. The file is written to a temporary name
// and renamed on success, so nothing is left behind on failure.
func DownloadPDF(ctx context.Context, client *http.Client, rawURL, destPath string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.New("empty URL")
	}

	if code, ok := probe(ctx, client, rawURL); ok && (code == http.StatusNotFound || code == http.StatusGone) {
		return fmt.Errorf("HTTP %d from %s", code, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body := bufio.NewReaderSize(resp.Body, sniffLen)
	head, err := body.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := acceptPDF(rawURL, resp.Header.Get("Content-Type"), head); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// probe sends a HEAD request and returns its status. ok is false when the
// request could not be made.
func probe(ctx context.Context, client *http.Client, rawURL string) (int, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, false
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false
	}
	resp.Body.Close()
	return resp.StatusCode, true
}

// acceptPDF decides whether a 200 response is a PDF.
func acceptPDF(rawURL, contentType string, head []byte) error {
	if pdfutil.IsHTMLContentType(contentType) {
		return fmt.Errorf("%w: content type %q", ErrNotPDF, contentType)
	}
	if pdfutil.IsPDF(head) {
		return nil
	}
	if pdfutil.IsHTML(head) {
		return fmt.Errorf("%w: server returned an HTML page", ErrNotPDF)
	}
	if strings.Contains(strings.ToLower(contentType), pdfutil.MIMEType) || hasPDFSuffix(rawURL) {
		return nil
	}
	return fmt.Errorf("%w: content type %q", ErrNotPDF, contentType)
}

// SavePDFs downloads each URL into cfg.PapersDir/raw, in order, and
// returns one result per URL. Empty entries are SKIP; a file already on
// disk is EXISTS unless cfg.Overwrite is set; a download that fails leaves
// no file and is FAIL. When cfg.Validate is set, a download pdfcpu cannot
// parse is removed and reported as FAIL. The results are also written to
// manifest.yaml in the output directory.
func SavePDFs(ctx context.Context, client *http.Client, urls []string, cfg types.AcquisitionConfig, w io.Writer) ([]types.DownloadResult, error) {
	outDir := filepath.Join(cfg.PapersDir, rawDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", outDir, err)
	}

	results := make([]types.DownloadResult, 0, len(urls))
	attempted := 0

	for _, rawURL := range urls {
		res := types.DownloadResult{URL: rawURL}

		if strings.TrimSpace(rawURL) == "" {
			res.Status = types.DownloadSkip
			res.PathOrMessage = "empty URL"
			fmt.Fprintf(w, "skipped: (empty URL)\n")
			results = append(results, res)
			continue
		}

		name := MakeSafeFilename(rawURL, "file", DefaultFilenameMaxLen)
		if name == "" {
			name = hashName(rawURL, "file", DefaultFilenameMaxLen)
		}
		res.Name = name
		savePath := filepath.Join(outDir, name)

		if _, err := os.Stat(savePath); err == nil && !cfg.Overwrite {
			res.Status = types.DownloadExists
			res.PathOrMessage = savePath
			fmt.Fprintf(w, "skipped: %s (already exists)\n", name)
			results = append(results, res)
			continue
		}

		if attempted > 0 && cfg.DownloadDelay > 0 {
			if err := sleep(ctx, cfg.DownloadDelay); err != nil {
				return results, err
			}
		}
		attempted++

		fmt.Fprintf(w, "downloading: %s\n", name)
		err := DownloadPDF(ctx, client, rawURL, savePath)
		if err == nil && cfg.Validate {
			if err = pdfutil.Validate(savePath); err != nil {
				os.Remove(savePath)
			}
		}
		if err != nil {
			res.Status = types.DownloadFail
			res.PathOrMessage = fmt.Sprintf("could not download PDF or not a PDF: %v", err)
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
			results = append(results, res)
			continue
		}

		res.Status = types.DownloadOK
		res.PathOrMessage = savePath
		results = append(results, res)
	}

	if err := writeManifest(filepath.Join(outDir, manifestName), results); err != nil {
		return results, err
	}
	return results, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// writeManifest writes the download results as YAML.
func writeManifest(path string, results []types.DownloadResult) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
