// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the causal-kg pipeline.
// Implements: search (Article, SearchRun);
//
//	acquire (DownloadResult, DownloadStatus);
//	extract (CausalTriple, Extraction, ExtractionResult).
package types

import "time"

// Article holds the bibliographic record of one PubMed article as shown to
// the selection prompt.
type Article struct {
	// PMID is the PubMed identifier (e.g. "35345678").
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// PubDate is the publication date as PubMed reports it (e.g. "2022 Mar 15").
	PubDate string `json:"pub_date" yaml:"pub_date"`

	// Journal is the journal title.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Abstract is the article abstract, sections joined by blank lines.
	Abstract string `json:"abstract" yaml:"abstract"`

	// CitationCount is the number of PubMed records citing this article.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// PMCID is the PubMed Central identifier, when the article has one.
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`

	// FullTextURL is the resolved full-text PDF URL. Empty when no open
	// full text exists.
	FullTextURL string `json:"full_text_url,omitempty" yaml:"full_text_url,omitempty"`
}

// SearchRun records one question-to-selection run of the search stage.
type SearchRun struct {
	// ID is a UUID assigned when the run starts.
	ID string `json:"id" yaml:"id"`

	// Question is the research question as the user phrased it.
	Question string `json:"question" yaml:"question"`

	// Strategy is the PubMed query drafted by the model.
	Strategy string `json:"strategy" yaml:"strategy"`

	// Candidates are the articles returned for the strategy, in PubMed order.
	Candidates []Article `json:"candidates" yaml:"candidates"`

	// Selected lists the PMIDs chosen by the model, in the model's order.
	Selected []string `json:"selected" yaml:"selected"`

	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// SelectedArticles returns the candidates whose PMIDs were selected, in
// selection order.
func (r SearchRun) SelectedArticles() []Article {
	byID := make(map[string]Article, len(r.Candidates))
	for _, a := range r.Candidates {
		byID[a.PMID] = a
	}
	out := make([]Article, 0, len(r.Selected))
	for _, id := range r.Selected {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
