// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/causal-kg/internal/httputil"
	"github.com/pdiddy/causal-kg/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 0
}

var fakePDF = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

func TestMakeSafeFilename(t *testing.T) {
	hash := func(s string) string {
		sum := sha1.Sum([]byte(s))
		return hex.EncodeToString(sum[:])[:12]
	}

	tests := []struct {
		name   string
		url    string
		prefix string
		maxLen int
		want   string
	}{
		{"europe pmc accid", "http://europepmc.org/backend/ptpmcrender.fcgi?accid=PMC8954705&blobtype=pdf", "file", 200, "PMC8954705.pdf"},
		{"id param", "https://example.com/get?id=abc/def", "file", 200, "abcdef.pdf"},
		{"pmcid beats file", "https://example.com/get?file=x.pdf&pmcid=PMC1", "file", 200, "PMC1.pdf"},
		{"escaped filename param", "https://example.com/get?filename=my%20review.pdf", "file", 200, "my review.pdf"},
		{"path basename", "https://example.com/papers/review.pdf", "file", 200, "review.pdf"},
		{"path without extension", "https://example.com/papers/report", "file", 200, "report.pdf"},
		{"escaped path", "https://example.com/papers/my%20paper.PDF", "file", 200, "my paper.PDF"},
		{"unicode path", "https://example.com/论文.pdf", "file", 200, "论文.pdf"},
		{"unsafe characters", "https://example.com/get?id=a<b>c:d*e", "file", 200, "abcde.pdf"},
		{"no name", "https://example.com/", "file", 200, "file_" + hash("https://example.com/") + ".pdf"},
		{"custom prefix", "https://example.com", "doc", 200, "doc_" + hash("https://example.com") + ".pdf"},
		{"truncated", "https://example.com/get?id=" + strings.Repeat("a", 300), "file", 20, strings.Repeat("a", 16) + ".pdf"},
		{"empty", "", "file", 200, ""},
		{"unparsable", "http://[::1", "file", 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeSafeFilename(tt.url, tt.prefix, tt.maxLen)
			if got != tt.want {
				t.Errorf("MakeSafeFilename(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// pdfServer serves fakePDF at /ok.pdf and /render, an HTML page at
// /login.pdf and /html, octet-stream PDF bytes at /blob, PDF bytes labelled
// text/html at /mislabelled, plain text at /text, and 404 elsewhere.
func pdfServer(t *testing.T, gets *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && gets != nil {
			atomic.AddInt32(gets, 1)
		}
		switch r.URL.Path {
		case "/ok.pdf", "/render":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(fakePDF)
		case "/login.pdf", "/html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<!DOCTYPE html><html><body>Please sign in</body></html>"))
		case "/blob":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(fakePDF)
		case "/mislabelled":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(fakePDF)
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("just some words"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDownloadPDF(t *testing.T) {
	ts := pdfServer(t, nil)

	tests := []struct {
		name    string
		path    string
		wantErr bool
		notPDF  bool
	}{
		{"pdf content type", "/ok.pdf", false, false},
		{"sniffed pdf", "/blob", false, false},
		{"html behind pdf suffix", "/login.pdf", true, true},
		{"html", "/html", true, true},
		{"pdf body with html content type", "/mislabelled", true, true},
		{"plain text", "/text", true, true},
		{"not found", "/missing", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "out.pdf")
			err := DownloadPDF(context.Background(), ts.Client(), ts.URL+tt.path, dest)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.notPDF && !errors.Is(err, ErrNotPDF) {
					t.Errorf("error %v is not ErrNotPDF", err)
				}
				if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
					t.Error("file left on disk after failure")
				}
				entries, _ := os.ReadDir(filepath.Dir(dest))
				if len(entries) != 0 {
					t.Errorf("temp files left behind: %v", entries)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(fakePDF) {
				t.Errorf("content mismatch: %q", got)
			}
		})
	}
}

func TestDownloadPDF_HeadNotFoundSkipsGet(t *testing.T) {
	var gets int32
	ts := pdfServer(t, &gets)

	err := DownloadPDF(context.Background(), ts.Client(), ts.URL+"/gone", filepath.Join(t.TempDir(), "x.pdf"))
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&gets); n != 0 {
		t.Errorf("GET called %d times after HEAD 404", n)
	}
}

func TestDownloadPDF_EmptyURL(t *testing.T) {
	if err := DownloadPDF(context.Background(), http.DefaultClient, "  ", "x.pdf"); err == nil {
		t.Error("expected error for empty URL")
	}
}

func testAcqConfig(papersDir string) types.AcquisitionConfig {
	return types.AcquisitionConfig{PapersDir: papersDir}
}

func TestSavePDFs(t *testing.T) {
	ts := pdfServer(t, nil)
	papersDir := t.TempDir()
	rawPath := filepath.Join(papersDir, rawDir)

	urls := []string{
		ts.URL + "/render?accid=PMC1&blobtype=pdf",
		"",
		ts.URL + "/html?accid=PMC2&blobtype=pdf",
		ts.URL + "/mislabelled?accid=PMC3&blobtype=pdf",
	}

	var buf strings.Builder
	results, err := SavePDFs(context.Background(), ts.Client(), urls, testAcqConfig(papersDir), &buf)
	if err != nil {
		t.Fatalf("SavePDFs: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	want := []types.DownloadResult{
		{Name: "PMC1.pdf", URL: urls[0], Status: types.DownloadOK, PathOrMessage: filepath.Join(rawPath, "PMC1.pdf")},
		{Name: "", URL: "", Status: types.DownloadSkip, PathOrMessage: "empty URL"},
	}
	for i, w := range want {
		if results[i] != w {
			t.Errorf("results[%d] = %+v, want %+v", i, results[i], w)
		}
	}

	for i, name := range map[int]string{2: "PMC2.pdf", 3: "PMC3.pdf"} {
		fail := results[i]
		if fail.Status != types.DownloadFail || fail.Name != name {
			t.Errorf("results[%d] = %+v, want FAIL for %s", i, fail, name)
		}
		if !strings.HasPrefix(fail.PathOrMessage, "could not download PDF or not a PDF") {
			t.Errorf("fail message = %q", fail.PathOrMessage)
		}
		if _, err := os.Stat(filepath.Join(rawPath, name)); !os.IsNotExist(err) {
			t.Errorf("failed download left %s", name)
		}
	}

	out := buf.String()
	for _, line := range []string{"downloading: PMC1.pdf", "skipped: (empty URL)", "failed:  PMC2.pdf", "failed:  PMC3.pdf"} {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}

	data, err := os.ReadFile(filepath.Join(rawPath, manifestName))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	var manifest []types.DownloadResult
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parsing manifest: %v", err)
	}
	if len(manifest) != 4 || manifest[0] != results[0] || manifest[1] != results[1] {
		t.Errorf("manifest = %+v", manifest)
	}
}

func TestSavePDFs_ExistingAndOverwrite(t *testing.T) {
	var gets int32
	ts := pdfServer(t, &gets)
	papersDir := t.TempDir()
	dest := filepath.Join(papersDir, rawDir, "PMC1.pdf")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	urls := []string{ts.URL + "/render?accid=PMC1&blobtype=pdf"}

	results, err := SavePDFs(context.Background(), ts.Client(), urls, testAcqConfig(papersDir), &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != types.DownloadExists || results[0].PathOrMessage != dest {
		t.Errorf("got %+v, want EXISTS", results[0])
	}
	if atomic.LoadInt32(&gets) != 0 {
		t.Error("existing file was downloaded again")
	}

	cfg := testAcqConfig(papersDir)
	cfg.Overwrite = true
	results, err = SavePDFs(context.Background(), ts.Client(), urls, cfg, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != types.DownloadOK {
		t.Errorf("got %+v, want OK", results[0])
	}
	got, _ := os.ReadFile(dest)
	if string(got) != string(fakePDF) {
		t.Error("overwrite did not replace the file")
	}
}

func TestSavePDFs_ValidateRejectsBrokenPDF(t *testing.T) {
	ts := pdfServer(t, nil)
	papersDir := t.TempDir()
	cfg := testAcqConfig(papersDir)
	cfg.Validate = true

	results, err := SavePDFs(context.Background(), ts.Client(), []string{ts.URL + "/ok.pdf"}, cfg, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != types.DownloadFail {
		t.Fatalf("got %+v, want FAIL for a PDF that does not parse", results[0])
	}
	if _, err := os.Stat(filepath.Join(papersDir, rawDir, "ok.pdf")); !os.IsNotExist(err) {
		t.Error("invalid PDF left on disk")
	}
}

func TestAcquireBatch(t *testing.T) {
	ts := pdfServer(t, nil)
	europePMCServer(t, map[string]string{
		"EXT_ID:111 AND SRC:MED": `{"resultList":{"result":[{"pmcid":"PMC9001","hasPDF":"Y"}]}}`,
	})

	oldRender := europePMCRenderURL
	europePMCRenderURL = ts.URL + "/render"
	t.Cleanup(func() { europePMCRenderURL = oldRender })

	var buf strings.Builder
	batch, err := AcquireBatch(context.Background(), ts.Client(), []string{"111", "222", "PMC5"}, testAcqConfig(t.TempDir()), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Downloaded != 2 || batch.Skipped != 1 || batch.Failed != 0 {
		t.Errorf("batch = %+v", batch)
	}
	if batch.Total() != 3 || batch.HasFailures() {
		t.Errorf("Total = %d, HasFailures = %v", batch.Total(), batch.HasFailures())
	}
	if !strings.Contains(buf.String(), "Batch summary: 2 downloaded, 0 existing, 1 skipped, 0 failed (total: 3)") {
		t.Errorf("missing summary in:\n%s", buf.String())
	}
}

func TestSummarize(t *testing.T) {
	b := Summarize([]types.DownloadResult{
		{Status: types.DownloadOK}, {Status: types.DownloadExists},
		{Status: types.DownloadSkip}, {Status: types.DownloadFail}, {Status: types.DownloadFail},
	})
	if b.Downloaded != 1 || b.Existing != 1 || b.Skipped != 1 || b.Failed != 2 || !b.HasFailures() {
		t.Errorf("Summarize = %+v", b)
	}
}
