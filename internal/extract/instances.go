// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// ExtractInstances asks the model for instances of causalType in chunk and
// returns the reply verbatim. It makes exactly one generation call and
// leaves conv as long as it found it.
func ExtractInstances(ctx context.Context, gen llm.Generator, conv *llm.Conversation, chunk string, causalType types.CausalType) (string, error) {
	prompt, err := renderInstancePrompt(chunk, causalType)
	if err != nil {
		return "", fmt.Errorf("rendering instance prompt: %w", err)
	}

	var reply string
	err = conv.Isolate(func() error {
		var err error
		reply, err = llm.Exchange(ctx, gen, conv, prompt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("extracting %q instances: %w", causalType, err)
	}
	return reply, nil
}

var codeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ParseExtraction turns a raw instance reply into an Extraction. It strips
// Markdown code fences, decodes the first JSON object or array in the
// text that holds triples, and validates every triple. Invalid triples are dropped; a reply
// with no valid triple is unparsed. Raw is always set to raw.
func ParseExtraction(raw string) types.Extraction {
	ex := types.Extraction{Raw: raw}

	triples, err := decodeTriples(raw)
	if err != nil {
		ex.Status = types.ExtractionUnparsed
		ex.Reason = err.Error()
		return ex
	}

	var dropped []string
	for i := range triples {
		t := triples[i]
		t.Normalize()
		if errs := t.Validate(); errs != nil {
			dropped = append(dropped, fmt.Sprintf("triple %d: %s", i, types.FormatValidation(errs)))
			continue
		}
		ex.Triples = append(ex.Triples, t)
	}

	switch {
	case len(ex.Triples) > 0:
		ex.Status = types.ExtractionParsed
		if len(dropped) > 0 {
			ex.Reason = "dropped " + strings.Join(dropped, "; ")
		}
	case len(dropped) > 0:
		ex.Status = types.ExtractionUnparsed
		ex.Reason = strings.Join(dropped, "; ")
	default:
		// An empty array: the model found no instance.
		ex.Status = types.ExtractionParsed
	}
	return ex
}

var errNoJSON = errors.New("no JSON object or array in response")

// decodeTriples finds and decodes one triple or a list of triples. Each
// '{' or '[' in the text is tried in turn until one decodes; when none
// does, the error of the first attempt is returned.
func decodeTriples(raw string) ([]types.CausalTriple, error) {
	text := raw
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}

	var firstErr error
	for offset := 0; offset < len(text); {
		i := strings.IndexAny(text[offset:], "{[")
		if i < 0 {
			break
		}
		start := offset + i
		triples, err := decodeAt(text[start:])
		if err == nil {
			return triples, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		offset = start + 1
	}
	if firstErr == nil {
		return nil, errNoJSON
	}
	return nil, firstErr
}

// decodeAt decodes the JSON value at the start of text as a triple or a
// list of triples.
func decodeAt(text string) ([]types.CausalTriple, error) {
	var value json.RawMessage
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	value = bytes.TrimSpace(value)
	if value[0] == '[' {
		var list []types.CausalTriple
		if err := json.Unmarshal(value, &list); err != nil {
			return nil, fmt.Errorf("decoding triple list: %w", err)
		}
		return list, nil
	}

	var one types.CausalTriple
	if err := json.Unmarshal(value, &one); err != nil {
		return nil, fmt.Errorf("decoding triple: %w", err)
	}
	return []types.CausalTriple{one}, nil
}
