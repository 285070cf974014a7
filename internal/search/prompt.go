// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/causal-kg/pkg/types"
)

// strategyPromptTmpl asks the model to write a PubMed query for a research
// question.
var strategyPromptTmpl = template.Must(template.New("strategy").Parse(`As a biomedical information retrieval expert, write a PubMed search strategy for the following research question:
Question: {{.Question}}
Requirements:
1. Use MeSH terms
2. Combine them with free-text terms
3. Use Boolean operators (AND/OR/NOT)
4. Restrict the publication type to Review
5. Restrict to the last 5 years
Note:
Return only the search strategy, without any explanation.
`))

// selectionPromptTmpl asks the model to pick the most relevant reviews.
var selectionPromptTmpl = template.Must(template.New("selection").Parse(`Select the {{.TopK}} most relevant of the following {{len .Articles}} reviews:
{{range .Articles}}
Title: {{.Title}}
Publication date: {{.PubDate}}
Citations: {{.CitationCount}}
Abstract: {{.Abstract}}
Article ID: {{.PMID}}
{{end}}
Selection criteria:
1. Cover different aspects of the query topic
2. High citation count and impact factor
3. Most recent publication date
4. Include mechanistic studies and clinical applications
Return the IDs of the {{.TopK}} selected reviews separated by commas, without any other text.
`))

func renderStrategyPrompt(question string) (string, error) {
	var buf bytes.Buffer
	if err := strategyPromptTmpl.Execute(&buf, struct{ Question string }{Question: question}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderSelectionPrompt(articles []types.Article, topK int) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Articles []types.Article
		TopK     int
	}{Articles: articles, TopK: topK}
	if err := selectionPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
