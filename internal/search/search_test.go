// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/causal-kg/pkg/types"
)

// --- mock database ---

type mockDatabase struct {
	ids       []string
	articles  []types.Article
	counts    map[string]int
	searchErr error
	countErr  error

	query string
	max   int
}

func (m *mockDatabase) Search(_ context.Context, query string, max int) ([]string, error) {
	m.query, m.max = query, max
	return m.ids, m.searchErr
}

func (m *mockDatabase) Fetch(_ context.Context, _ []string) ([]types.Article, error) {
	out := make([]types.Article, len(m.articles))
	copy(out, m.articles)
	return out, nil
}

func (m *mockDatabase) CitationCounts(_ context.Context, _ []string) (map[string]int, error) {
	return m.counts, m.countErr
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{MaxResults: 20, TopK: 2}
}

func TestRun(t *testing.T) {
	gen := &mockGenerator{strategy: "hypertension AND Review[pt]", selection: "2, 1"}
	db := &mockDatabase{
		ids:      []string{"1", "2", "3"},
		articles: candidates("1", "2", "3"),
		counts:   map[string]int{"1": 4, "2": 9},
	}

	var buf bytes.Buffer
	run, err := Run(context.Background(), gen, db, "  What causes hypertension?  ", testCfg(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.ID == "" {
		t.Error("run ID not assigned")
	}
	if run.Question != "What causes hypertension?" {
		t.Errorf("Question = %q", run.Question)
	}
	if db.query != "hypertension AND Review[pt]" || db.max != 20 {
		t.Errorf("Search called with %q, %d", db.query, db.max)
	}
	if run.Candidates[1].CitationCount != 9 || run.Candidates[2].CitationCount != 0 {
		t.Errorf("citation counts not applied: %+v", run.Candidates)
	}
	if strings.Join(run.Selected, ",") != "2,1" {
		t.Errorf("Selected = %v", run.Selected)
	}
	if !strings.Contains(gen.prompts[1], "Citations: 9") {
		t.Error("selection prompt should show citation counts")
	}
	for _, want := range []string{"strategy: hypertension", "candidates: 3", "selected: 2, 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRun_EmptyQuestion(t *testing.T) {
	gen := &mockGenerator{}
	if _, err := Run(context.Background(), gen, &mockDatabase{}, " ", testCfg(), &bytes.Buffer{}); err == nil {
		t.Error("expected error for empty question")
	}
	if len(gen.prompts) != 0 {
		t.Error("model should not be called")
	}
}

func TestRun_NoResults(t *testing.T) {
	gen := &mockGenerator{strategy: "x"}
	var buf bytes.Buffer
	run, err := Run(context.Background(), gen, &mockDatabase{}, "q", testCfg(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.Candidates) != 0 || len(run.Selected) != 0 {
		t.Errorf("run = %+v, want empty", run)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("got %d model calls, want strategy only", len(gen.prompts))
	}
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRun_SearchError(t *testing.T) {
	gen := &mockGenerator{strategy: "x"}
	db := &mockDatabase{searchErr: errors.New("unavailable")}
	if _, err := Run(context.Background(), gen, db, "q", testCfg(), &bytes.Buffer{}); err == nil {
		t.Error("expected error")
	}
}

func TestRun_CitationFailureIsWarning(t *testing.T) {
	gen := &mockGenerator{strategy: "x", selection: "1"}
	db := &mockDatabase{ids: []string{"1"}, articles: candidates("1"), countErr: errors.New("elink down")}

	var buf bytes.Buffer
	run, err := Run(context.Background(), gen, db, "q", testCfg(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Candidates[0].CitationCount != 0 {
		t.Errorf("CitationCount = %d, want 0", run.Candidates[0].CitationCount)
	}
	if !strings.Contains(buf.String(), "warning: citation counts unavailable: elink down") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteReadRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "search")
	run := &types.SearchRun{
		ID:         "abc",
		Question:   "q",
		Strategy:   "s",
		Candidates: candidates("1", "2"),
		Selected:   []string{"2"},
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	path, err := WriteRun(dir, run)
	if err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	if path != filepath.Join(dir, "abc.yaml") {
		t.Errorf("path = %q", path)
	}

	got, err := ReadRun(path)
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if got.Strategy != "s" || len(got.Candidates) != 2 || !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestReadRun_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("candidates: [unterminated"), 0o644)
	if _, err := ReadRun(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLatestRun(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for id, offset := range map[string]time.Duration{"old": 0, "new": 2 * time.Hour, "mid": time.Hour} {
		if _, err := WriteRun(dir, &types.SearchRun{ID: id, CreatedAt: base.Add(offset)}); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	got, err := LatestRun(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "new.yaml" {
		t.Errorf("LatestRun = %q, want new.yaml", got)
	}
}

func TestLatestRun_Empty(t *testing.T) {
	if _, err := LatestRun(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestIdentifiers(t *testing.T) {
	arts := candidates("1", "2", "3")
	arts[0].PMCID = "PMC11"
	arts[0].FullTextURL = "https://example.org/a.pdf"
	arts[1].PMCID = "PMC22"
	run := &types.SearchRun{Candidates: arts, Selected: []string{"2", "3", "1"}}

	got := Identifiers(run)
	if strings.Join(got, ",") != "PMC22,3,https://example.org/a.pdf" {
		t.Errorf("Identifiers = %v", got)
	}
}

func TestFormatTable(t *testing.T) {
	arts := candidates("1", "2")
	arts[0].Title = strings.Repeat("x", 80)
	arts[1].CitationCount = 12
	run := &types.SearchRun{Candidates: arts, Selected: []string{"2"}}

	var buf bytes.Buffer
	FormatTable(run, &buf)
	out := buf.String()

	if !strings.Contains(out, strings.Repeat("x", 57)+"...") {
		t.Error("long title not truncated")
	}
	if !strings.Contains(out, "2 candidates, 1 selected") {
		t.Errorf("summary line missing:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[3], "*") {
		t.Errorf("selected row not marked: %q", lines[3])
	}
	if strings.HasPrefix(lines[2], "*") {
		t.Errorf("unselected row marked: %q", lines[2])
	}
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(&types.SearchRun{}, &buf)
	if buf.String() != "No results found.\n" {
		t.Errorf("output = %q", buf.String())
	}
}
