// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// maxLabelChars bounds a causal type label. Longer labels are sentences
// the model wrote instead of a list.
const maxLabelChars = 80

// listMarker matches a bullet or enumeration prefix such as "- ", "2. ", "3) ".
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d{1,2}[.)])\s+`)

// replyPrefix matches a heading such as "Causal types:" that opens a reply.
var replyPrefix = regexp.MustCompile(`(?i)^\s*(?:causal\s+)?(?:relationship\s+)?types?\s*[:：]`)

// DiscoverTypes asks the model which causal relationship types occur in
// chunk. It makes exactly one generation call and leaves conv as long as
// it found it. An answer with no usable labels yields an empty slice.
func DiscoverTypes(ctx context.Context, gen llm.Generator, conv *llm.Conversation, chunk string) ([]types.CausalType, error) {
	prompt, err := renderDiscoveryPrompt(chunk)
	if err != nil {
		return nil, fmt.Errorf("rendering discovery prompt: %w", err)
	}

	var reply string
	err = conv.Isolate(func() error {
		var err error
		reply, err = llm.Exchange(ctx, gen, conv, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("discovering causal types: %w", err)
	}

	return ParseTypes(reply), nil
}

// ParseTypes splits a discovery reply into distinct labels in first-seen
// order. Commas (ASCII, full-width, and the ideographic enumeration comma)
// and line breaks separate labels. Refusals and explanatory sentences are
// dropped. A leading "Causal types:" heading is removed; colons inside a
// label are kept.
func ParseTypes(reply string) []types.CausalType {
	reply = replyPrefix.ReplaceAllString(reply, "")
	parts := strings.FieldsFunc(reply, func(r rune) bool {
		switch r {
		case ',', '，', '、', '\n':
			return true
		}
		return false
	})

	seen := make(map[types.CausalType]bool, len(parts))
	var out []types.CausalType
	for _, p := range parts {
		label, ok := cleanLabel(p)
		if !ok {
			continue
		}
		ct := types.CausalType(label)
		if seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	return out
}

// cleanLabel trims list decoration from one label and reports whether the
// result is usable.
func cleanLabel(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(s, " \t\"'`“”‘’[]{}.。")

	if s == "" || utf8.RuneCountInString(s) > maxLabelChars {
		return "", false
	}
	if isRefusal(s) || strings.ContainsAny(s, "?!;？！；") || strings.Contains(s, ". ") {
		return "", false
	}
	return s, true
}

var refusalLabels = map[string]bool{
	"none":  true,
	"no":    true,
	"n/a":   true,
	"na":    true,
	"null":  true,
	"nil":   true,
	"empty": true,
	"无":     true,
	"空":     true,
}

func isRefusal(label string) bool {
	l := strings.ToLower(label)
	if refusalLabels[l] {
		return true
	}
	for _, prefix := range []string{"no causal", "there is no", "there are no", "the text does not", "i cannot", "i can't", "sorry"} {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
