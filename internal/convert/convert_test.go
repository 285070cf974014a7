// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeConverter returns canned text per PDF path and counts calls.
type fakeConverter struct {
	outputs map[string]string
	errs    map[string]error
	calls   int
}

func (f *fakeConverter) Convert(_ context.Context, pdfPath string) (string, error) {
	f.calls++
	name := filepath.Base(pdfPath)
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	if out, ok := f.outputs[name]; ok {
		return out, nil
	}
	return "", errors.New("unexpected path: " + pdfPath)
}

// fakePageCount treats files whose content starts with "pages:N" as N-page
// PDFs and everything else as unreadable.
func fakePageCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var n int
	if _, err := fmt.Sscanf(string(data), "pages:%d", &n); err != nil {
		return 0, fmt.Errorf("not a PDF: %s", filepath.Base(path))
	}
	return n, nil
}

func TestMain(m *testing.M) {
	pageCount = fakePageCount
	os.Exit(m.Run())
}

// setupRaw writes files into a fresh papers/raw directory and returns the
// papers directory.
func setupRaw(t *testing.T, files map[string]string) string {
	t.Helper()
	papers := t.TempDir()
	raw := filepath.Join(papers, "raw")
	if err := os.MkdirAll(raw, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(raw, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return papers
}

func TestTextPath(t *testing.T) {
	got := TextPath("papers", "papers/raw/PMC8954705.pdf")
	if got != filepath.Join("papers", "text", "PMC8954705.txt") {
		t.Errorf("TextPath = %q", got)
	}
}

func TestConvertFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		preCreate  bool
		convErr    error
		wantStatus Status
		wantLog    string
		wantCalls  int
	}{
		{"converted", "pages:3", false, nil, StatusConverted, "converted: PMC1 (3 pages, 11 chars)", 1},
		{"existing output kept", "pages:3", true, nil, StatusSkipped, "skipped: PMC1 (already exists)", 0},
		{"unreadable PDF", "<html>", false, nil, StatusFailed, "failed:  PMC1 (not a PDF: PMC1.pdf)", 0},
		{"converter error", "pages:1", false, errors.New("pdftotext crashed"), StatusFailed, "failed:  PMC1 (pdftotext crashed)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers := setupRaw(t, map[string]string{"PMC1.pdf": tt.content})
			txt := filepath.Join(papers, "text", "PMC1.txt")
			if tt.preCreate {
				os.MkdirAll(filepath.Dir(txt), 0o755)
				os.WriteFile(txt, []byte("existing"), 0o644)
			}

			conv := &fakeConverter{outputs: map[string]string{"PMC1.pdf": "page1\npage2"}}
			if tt.convErr != nil {
				conv.errs = map[string]error{"PMC1.pdf": tt.convErr}
			}

			var log bytes.Buffer
			status := ConvertFile(context.Background(), conv, filepath.Join(papers, "raw", "PMC1.pdf"), papers, &log)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if !strings.Contains(log.String(), tt.wantLog) {
				t.Errorf("log %q does not contain %q", log.String(), tt.wantLog)
			}
			if conv.calls != tt.wantCalls {
				t.Errorf("converter calls = %d, want %d", conv.calls, tt.wantCalls)
			}

			data, err := os.ReadFile(txt)
			switch {
			case tt.preCreate:
				if string(data) != "existing" {
					t.Errorf("existing output overwritten: %q", data)
				}
			case tt.wantStatus == StatusConverted:
				if string(data) != "page1\npage2" {
					t.Errorf("text = %q", data)
				}
			default:
				if err == nil {
					t.Error("no output expected on failure")
				}
			}
		})
	}
}

func TestConvertBatch(t *testing.T) {
	papers := setupRaw(t, map[string]string{
		"a.pdf": "pages:2",
		"b.pdf": "pages:2",
		"c.pdf": "pages:2",
	})
	os.MkdirAll(filepath.Join(papers, "text"), 0o755)
	os.WriteFile(filepath.Join(papers, "text", "b.txt"), []byte("existing"), 0o644)

	conv := &fakeConverter{
		outputs: map[string]string{"a.pdf": "text a"},
		errs:    map[string]error{"c.pdf": errors.New("bad pdf")},
	}

	pdfs, err := ListPDFs(papers)
	if err != nil {
		t.Fatal(err)
	}

	var log bytes.Buffer
	result := ConvertBatch(context.Background(), conv, pdfs, papers, &log)

	if result.Converted != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1/1/1", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if result.Total() != 3 {
		t.Errorf("total = %d, want 3", result.Total())
	}
	if !strings.Contains(log.String(), "Batch summary: 1 converted, 1 skipped, 1 failed (total: 3)") {
		t.Errorf("summary missing:\n%s", log.String())
	}
}

func TestConvertBatch_Cancelled(t *testing.T) {
	papers := setupRaw(t, map[string]string{"a.pdf": "pages:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := &fakeConverter{outputs: map[string]string{"a.pdf": "x"}}
	result := ConvertBatch(ctx, conv, []string{filepath.Join(papers, "raw", "a.pdf")}, papers, &bytes.Buffer{})
	if result.Total() != 0 || conv.calls != 0 {
		t.Errorf("result = %+v, calls = %d; want nothing processed", result, conv.calls)
	}
}

func TestListPDFs(t *testing.T) {
	papers := setupRaw(t, map[string]string{
		"b.pdf":         "",
		"A.PDF":         "",
		"manifest.yaml": "",
	})
	os.MkdirAll(filepath.Join(papers, "raw", "sub.pdf"), 0o755)

	got, err := ListPDFs(papers)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	if strings.Join(names, ",") != "A.PDF,b.pdf" {
		t.Errorf("ListPDFs = %v", names)
	}
}

func TestListPDFs_MissingDir(t *testing.T) {
	if _, err := ListPDFs(t.TempDir()); err == nil {
		t.Error("expected error for missing raw directory")
	}
}
