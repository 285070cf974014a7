// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/pkg/types"
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// DraftStrategy asks the model for a PubMed search strategy answering
// question. The reply is cleaned of code fences, a leading label, and
// surrounding quotes, and folded onto one line.
func DraftStrategy(ctx context.Context, gen llm.Generator, question string) (string, error) {
	prompt, err := renderStrategyPrompt(question)
	if err != nil {
		return "", fmt.Errorf("rendering strategy prompt: %w", err)
	}

	reply, err := llm.Exchange(ctx, gen, llm.NewConversation(), prompt)
	if err != nil {
		return "", fmt.Errorf("drafting search strategy: %w", err)
	}

	strategy := cleanStrategy(reply)
	if strategy == "" {
		return "", fmt.Errorf("model returned an empty search strategy")
	}
	return strategy, nil
}

var strategyLabel = regexp.MustCompile(`(?i)^\s*(?:pubmed\s+)?(?:search\s+)?(?:strategy|query)\s*:\s*`)

func cleanStrategy(reply string) string {
	s := reply
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strategyLabel.ReplaceAllString(s, "")
	s = strings.Trim(s, "`'\"“” ")
	return s
}

// SelectArticles asks the model to choose topK of candidates and returns
// the chosen PMIDs in the model's order. Brackets are stripped and the
// reply is split on commas; IDs that are not among the candidates, and
// repeats, are dropped.
func SelectArticles(ctx context.Context, gen llm.Generator, candidates []types.Article, topK int) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = types.DefaultTopK
	}

	prompt, err := renderSelectionPrompt(candidates, topK)
	if err != nil {
		return nil, fmt.Errorf("rendering selection prompt: %w", err)
	}

	reply, err := llm.Exchange(ctx, gen, llm.NewConversation(), prompt)
	if err != nil {
		return nil, fmt.Errorf("selecting articles: %w", err)
	}

	known := make(map[string]bool, len(candidates))
	for _, a := range candidates {
		known[a.PMID] = true
	}
	return filterSelection(ParseSelection(reply), known), nil
}

var pmidLabel = regexp.MustCompile(`(?i)^pmid\s*:?\s*`)

// ParseSelection splits a selection reply into IDs: "[" and "]" are
// removed, the text is split on commas, and each piece is trimmed of
// whitespace, quotes, and a "PMID:" label. Empty pieces are dropped.
func ParseSelection(reply string) []string {
	reply = strings.NewReplacer("[", "", "]", "").Replace(reply)
	var out []string
	for _, part := range strings.Split(reply, ",") {
		id := strings.Trim(strings.TrimSpace(part), `"'`)
		id = pmidLabel.ReplaceAllString(id, "")
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func filterSelection(ids []string, known map[string]bool) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
