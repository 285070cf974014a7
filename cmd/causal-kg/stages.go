// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// newGenerator builds the retrying OpenAI-compatible generator. Each retry
// is reported on stderr.
func newGenerator(cfg types.GenerationConfig) (llm.Generator, error) {
	gen, err := llm.NewOpenAIGenerator(cfg, nil)
	if err != nil {
		return nil, err
	}
	r := llm.WithRetry(gen, cfg.MaxRetries)
	r.Notify = func(err error, wait time.Duration) {
		fmt.Fprintf(os.Stderr, "retrying in %s: %v\n", wait.Round(time.Millisecond), err)
	}
	return r, nil
}
