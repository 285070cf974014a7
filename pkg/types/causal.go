// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CausalType names a category of causal relationship found in a chunk
// (e.g. "gene regulation", "signaling pathway").
type CausalType string

// EvidenceStrength grades how well the text supports a causal triple.
type EvidenceStrength string

const (
	EvidenceStrong   EvidenceStrength = "strong"
	EvidenceModerate EvidenceStrength = "moderate"
	EvidenceWeak     EvidenceStrength = "weak"
)

// CausalTriple is one cause-effect relationship extracted from text.
// Field names follow the JSON record the extraction prompt asks for.
type CausalTriple struct {
	Subject           string           `json:"subject" yaml:"subject" validate:"required"`
	SubjectState      string           `json:"subject_state" yaml:"subject_state"`
	Predicate         string           `json:"predicate" yaml:"predicate" validate:"required"`
	Object            string           `json:"object" yaml:"object" validate:"required"`
	ObjectStateChange string           `json:"object_state_change" yaml:"object_state_change"`
	TemporalInfo      string           `json:"temporal_info,omitempty" yaml:"temporal_info,omitempty"`
	Mechanism         string           `json:"mechanism" yaml:"mechanism"`
	EvidenceStrength  EvidenceStrength `json:"evidence_strength" yaml:"evidence_strength" validate:"required,oneof=strong moderate weak"`
	SourceSentence    string           `json:"source_sentence" yaml:"source_sentence"`
}

// ExtractionStatus tells whether a model response could be turned into
// triples.
type ExtractionStatus string

const (
	ExtractionParsed   ExtractionStatus = "parsed"
	ExtractionUnparsed ExtractionStatus = "unparsed"
)

// Extraction is the outcome of one (chunk, causal type) extraction call.
// A parsed extraction carries Triples; an unparsed one carries Reason. Raw
// always holds the response text exactly as the model returned it.
type Extraction struct {
	Chunk   int              `json:"chunk" yaml:"chunk"`
	Type    CausalType       `json:"type" yaml:"type"`
	Status  ExtractionStatus `json:"status" yaml:"status"`
	Triples []CausalTriple   `json:"triples,omitempty" yaml:"triples,omitempty"`
	Reason  string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	Raw     string           `json:"raw" yaml:"raw"`
}

// Parsed reports whether the extraction produced validated triples.
func (e Extraction) Parsed() bool {
	return e.Status == ExtractionParsed
}

// ChunkReport records what type discovery found for one chunk.
type ChunkReport struct {
	Index int          `json:"index" yaml:"index"`
	Chars int          `json:"chars" yaml:"chars"`
	Types []CausalType `json:"types" yaml:"types"`

	// Skipped lists types not extracted again because an earlier chunk
	// already covered them. Only populated when type dedup is enabled.
	Skipped []CausalType `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// ExtractionResult holds the causal extraction output for one document.
type ExtractionResult struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	DocumentID  string        `json:"document_id" yaml:"document_id"`
	Model       string        `json:"model" yaml:"model"`
	ChunkSize   int           `json:"chunk_size" yaml:"chunk_size"`
	Chunks      []ChunkReport `json:"chunks" yaml:"chunks"`
	Extractions []Extraction  `json:"extractions" yaml:"extractions"`
	ExtractedAt time.Time     `json:"extracted_at" yaml:"extracted_at"`
}

// Triples returns every parsed triple in extraction order.
func (r *ExtractionResult) Triples() []CausalTriple {
	var out []CausalTriple
	for _, e := range r.Extractions {
		out = append(out, e.Triples...)
	}
	return out
}

// RawBlobs returns the raw model response of every extraction call, in
// order: one blob per discovered type per chunk.
func (r *ExtractionResult) RawBlobs() []string {
	out := make([]string, len(r.Extractions))
	for i, e := range r.Extractions {
		out[i] = e.Raw
	}
	return out
}

// Unparsed counts extractions whose response could not be parsed.
func (r *ExtractionResult) Unparsed() int {
	n := 0
	for _, e := range r.Extractions {
		if !e.Parsed() {
			n++
		}
	}
	return n
}
