// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search turns a research question into a ranked set of PubMed
// review articles: the model drafts a search strategy, PubMed returns
// candidates, and the model selects the most relevant ones.
// Implements: strategy drafting; PubMed E-utilities client;
//
//	article selection; search run records (search/<run-id>.yaml).
package search

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// Run drafts a strategy for question, fetches up to cfg.MaxResults
// candidates with their citation counts, and asks the model to select
// cfg.TopK of them. A failed citation lookup is reported on w and leaves
// the counts at zero. When PubMed returns nothing, the run has no
// candidates and no selection.
func Run(ctx context.Context, gen llm.Generator, db Database, question string, cfg types.SearchConfig, w io.Writer) (*types.SearchRun, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("research question is empty")
	}

	run := &types.SearchRun{
		ID:        uuid.NewString(),
		Question:  question,
		CreatedAt: time.Now().UTC(),
	}

	strategy, err := DraftStrategy(ctx, gen, question)
	if err != nil {
		return nil, err
	}
	run.Strategy = strategy
	fmt.Fprintf(w, "strategy: %s\n", strategy)

	ids, err := db.Search(ctx, strategy, cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("searching PubMed: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No results found.")
		return run, nil
	}

	articles, err := db.Fetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching articles: %w", err)
	}

	counts, err := db.CitationCounts(ctx, ids)
	if err != nil {
		fmt.Fprintf(w, "warning: citation counts unavailable: %v\n", err)
	}
	for i := range articles {
		articles[i].CitationCount = counts[articles[i].PMID]
	}
	run.Candidates = articles
	fmt.Fprintf(w, "candidates: %d\n", len(articles))

	selected, err := SelectArticles(ctx, gen, articles, cfg.TopK)
	if err != nil {
		return nil, err
	}
	run.Selected = selected
	fmt.Fprintf(w, "selected: %s\n", strings.Join(selected, ", "))

	return run, nil
}

// WriteRun stores run as dir/<id>.yaml and returns the path.
func WriteRun(dir string, run *types.SearchRun) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	data, err := yaml.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("marshaling search run: %w", err)
	}
	path := filepath.Join(dir, run.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing search run: %w", err)
	}
	return path, nil
}

// ReadRun loads a search run written by WriteRun.
func ReadRun(path string) (*types.SearchRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search run: %w", err)
	}
	var run types.SearchRun
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing search run %s: %w", path, err)
	}
	return &run, nil
}

// LatestRun returns the path of the most recently created run in dir.
func LatestRun(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading search directory %s: %w", dir, err)
	}

	type candidate struct {
		path    string
		created time.Time
	}
	var runs []candidate
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		run, err := ReadRun(path)
		if err != nil {
			continue
		}
		runs = append(runs, candidate{path: path, created: run.CreatedAt})
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no search runs in %s", dir)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].created.After(runs[j].created) })
	return runs[0].path, nil
}

// Identifiers returns the acquisition identifier of each selected
// article: its full-text URL when already resolved, else its PMC ID, else
// its PMID.
func Identifiers(run *types.SearchRun) []string {
	selected := run.SelectedArticles()
	out := make([]string, len(selected))
	for i, a := range selected {
		switch {
		case a.FullTextURL != "":
			out[i] = a.FullTextURL
		case a.PMCID != "":
			out[i] = a.PMCID
		default:
			out[i] = a.PMID
		}
	}
	return out
}

// FormatTable writes the candidates of run as a human-readable table,
// marking the selected ones.
func FormatTable(run *types.SearchRun, w io.Writer) {
	if len(run.Candidates) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	selected := make(map[string]bool, len(run.Selected))
	for _, id := range run.Selected {
		selected[id] = true
	}

	fmt.Fprintf(w, "%-3s  %-10s  %-60s  %-12s  %-5s  %s\n",
		"Sel", "PMID", "Title", "Date", "Cited", "PMCID")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, a := range run.Candidates {
		mark := ""
		if selected[a.PMID] {
			mark = "*"
		}
		fmt.Fprintf(w, "%-3s  %-10s  %-60s  %-12s  %-5d  %s\n",
			mark, a.PMID, truncate(a.Title, 60), truncate(a.PubDate, 12), a.CitationCount, a.PMCID)
	}

	fmt.Fprintf(w, "\n%d candidates, %d selected\n", len(run.Candidates), len(run.Selected))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
