// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/causal-kg/pkg/types"
)

// discoveryPromptTmpl asks the model which kinds of causal relationship a
// chunk contains, as a bare comma-separated list.
var discoveryPromptTmpl = template.Must(template.New("discovery").Parse(`Identify the types of causal relationship present in the following text:
{{.Chunk}}

Output the list of causal types (for example: gene regulation, signaling pathway, environmental factor). If the text contains no causal relationship, return nothing. Otherwise separate the types with commas. Do not add any explanation.
`))

// instancePromptTmpl asks the model for one JSON record describing an
// instance of the given causal type in a chunk.
var instancePromptTmpl = template.Must(template.New("instance").Parse(`Extract causal instances of {{.Type}}:
Text: {{.Chunk}}

Output format (JSON):
{
"subject": "cause entity",
"subject_state": "baseline/upregulated/downregulated/activated/inhibited",
"predicate": "specific causal relation (e.g. upregulates, activates, inhibits)",
"object": "effect entity",
"object_state_change": "direction of the state change",
"temporal_info": "temporal information (if any)",
"mechanism": "description of the mechanism (50-100 words)",
"evidence_strength": "strong/moderate/weak",
"source_sentence": "the original sentence"
}
`))

func renderDiscoveryPrompt(chunk string) (string, error) {
	var buf bytes.Buffer
	if err := discoveryPromptTmpl.Execute(&buf, struct{ Chunk string }{Chunk: chunk}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderInstancePrompt(chunk string, ct types.CausalType) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Chunk string
		Type  types.CausalType
	}{Chunk: chunk, Type: ct}
	if err := instancePromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
