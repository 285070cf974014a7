// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns document text into causal triples by chunked
// prompting: the text is segmented, the model names the causal types in
// each chunk, and one extraction call per (chunk, type) asks for a JSON
// triple.
// Implements: causal-type discovery; instance extraction;
//
//	extraction pipeline and batch stage (graph/<id>-causal.yaml).
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/causal-kg/internal/llm"
	"github.com/pdiddy/causal-kg/internal/segment"
	"github.com/pdiddy/causal-kg/pkg/types"
)

const (
	textDir     = "text"
	graphSuffix = "-causal.yaml"
)

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExtractAll runs ExtractDocument over every papersDir/text/*.txt file and
// writes one graphDir/<id>-causal.yaml per document. Documents whose output
// is newer than their text are skipped. A failed document is reported and
// the batch moves on.
func ExtractAll(ctx context.Context, gen llm.Generator, cfg types.ExtractionConfig, w io.Writer) (BatchSummary, error) {
	inDir := filepath.Join(cfg.PapersDir, textDir)

	if err := os.MkdirAll(cfg.GraphDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading text directory %s: %w", inDir, err)
	}

	runID := uuid.NewString()
	var summary BatchSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		docID := strings.TrimSuffix(entry.Name(), ".txt")
		txtPath := filepath.Join(inDir, entry.Name())
		outPath := filepath.Join(cfg.GraphDir, docID+graphSuffix)

		changed, err := hasChanged(txtPath, outPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", docID)
			summary.Skipped++
			continue
		}

		content, err := os.ReadFile(txtPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: reading text: %v\n", docID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracting %s\n", docID)

		result, err := ExtractDocument(ctx, gen, docID, string(content), cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}
		result.RunID = runID

		if err := writeResult(outPath, result); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", docID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracted %s (%d chunks, %d triples, %d unparsed)\n",
			docID, len(result.Chunks), len(result.Triples()), result.Unparsed())
		summary.Extracted++
	}

	fmt.Fprintf(w, "\nBatch summary: %d extracted, %d skipped, %d failed (total: %d)\n",
		summary.Extracted, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

// job is one (chunk, causal type) extraction call.
type job struct {
	chunk int
	text  string
	ctype types.CausalType
}

// ExtractDocument segments text, discovers the causal types of each chunk
// in order, then runs one instance extraction per (chunk, type) on a pool
// of cfg.Concurrency workers. Extractions are returned in chunk order, then
// discovery order, whatever the concurrency. A generation failure that
// survives retries aborts the document.
func ExtractDocument(ctx context.Context, gen llm.Generator, docID, text string, cfg types.ExtractionConfig) (*types.ExtractionResult, error) {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = segment.DefaultChunkSize
	}

	chunks := segment.Segment(text, chunkSize)
	if cfg.MaxChunks > 0 && len(chunks) > cfg.MaxChunks {
		chunks = chunks[:cfg.MaxChunks]
	}

	result := &types.ExtractionResult{
		RunID:       uuid.NewString(),
		DocumentID:  docID,
		Model:       llm.ModelName(gen),
		ChunkSize:   chunkSize,
		ExtractedAt: time.Now().UTC(),
	}

	conv := llm.NewConversation()
	extracted := make(map[types.CausalType]bool)
	var jobs []job

	for i, chunk := range chunks {
		found, err := DiscoverTypes(ctx, gen, conv, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		report := types.ChunkReport{
			Index: i,
			Chars: utf8.RuneCountInString(chunk),
			Types: found,
		}
		for _, ct := range found {
			if cfg.DedupTypes && extracted[ct] {
				report.Skipped = append(report.Skipped, ct)
				continue
			}
			extracted[ct] = true
			jobs = append(jobs, job{chunk: i, text: chunk, ctype: ct})
		}
		result.Chunks = append(result.Chunks, report)
	}

	extractions, err := runJobs(ctx, gen, jobs, cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	result.Extractions = extractions
	return result, nil
}

// runJobs executes jobs on an ants pool. Each job gets its own
// Conversation. The first failure cancels the jobs not yet started; the
// error reported is the lowest-indexed failure that is not a cancellation.
func runJobs(ctx context.Context, gen llm.Generator, jobs []job, workers int) ([]types.Extraction, error) {
	out := make([]types.Extraction, len(jobs))
	if len(jobs) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("chunk %d, type %q: panic: %v", j.chunk, j.ctype, r)
					cancel()
				}
			}()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			raw, err := ExtractInstances(ctx, gen, llm.NewConversation(), j.text, j.ctype)
			if err != nil {
				errs[i] = fmt.Errorf("chunk %d: %w", j.chunk, err)
				cancel()
				return
			}

			ex := ParseExtraction(raw)
			ex.Chunk = j.chunk
			ex.Type = j.ctype
			out[i] = ex
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submitting job: %w", err)
			cancel()
			break
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// hasChanged reports whether the text file is newer than the output file.
// Returns true if the output does not exist or the text is more recent.
func hasChanged(txtPath, outPath string) (bool, error) {
	txtInfo, err := os.Stat(txtPath)
	if err != nil {
		return false, fmt.Errorf("stat text %s: %w", txtPath, err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", outPath, err)
	}

	return txtInfo.ModTime().After(outInfo.ModTime()), nil
}

// writeResult marshals the ExtractionResult to a YAML file.
func writeResult(path string, result *types.ExtractionResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
