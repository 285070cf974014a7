// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/causal-kg/internal/httputil"
)

// Europe PMC endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	europePMCSearchURL = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"
	europePMCRenderURL = "https://europepmc.org/backend/ptpmcrender.fcgi"
)

// europePMCResponse captures the fields we need from a search response.
type europePMCResponse struct {
	ResultList struct {
		Result []europePMCRecord `json:"result"`
	} `json:"resultList"`
}

type europePMCRecord struct {
	PMID         string `json:"pmid"`
	PMCID        string `json:"pmcid"`
	IsOpenAccess string `json:"isOpenAccess"`
	InEPMC       string `json:"inEPMC"`
	HasPDF       string `json:"hasPDF"`
}

// RenderURL returns the Europe PMC PDF rendering URL for a PMC ID.
func RenderURL(pmcid string) string {
	q := url.Values{}
	q.Set("accid", pmcid)
	q.Set("blobtype", "pdf")
	return europePMCRenderURL + "?" + q.Encode()
}

// FullTextURL resolves an identifier to a full-text PDF URL. PMC IDs map
// directly to the rendering endpoint; PMIDs and DOIs are looked up in
// Europe PMC. URLs are returned unchanged. It returns "" with a nil error
// when the article has no full text in PMC.
func FullTextURL(ctx context.Context, client *http.Client, identifier string) (string, error) {
	idType, norm := Classify(identifier)
	switch idType {
	case TypeURL:
		return norm, nil
	case TypePMCID:
		return RenderURL(norm), nil
	case TypePMID:
		return lookupEuropePMC(ctx, client, fmt.Sprintf("EXT_ID:%s AND SRC:MED", norm))
	case TypeDOI:
		return lookupEuropePMC(ctx, client, fmt.Sprintf("DOI:%q", norm))
	default:
		return "", fmt.Errorf("unrecognized identifier format: %q", identifier)
	}
}

// lookupEuropePMC runs query against the Europe PMC search API and builds
// the PDF URL of the first hit that has a PMC ID and a PDF.
func lookupEuropePMC(ctx context.Context, client *http.Client, query string) (string, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("format", "json")
	q.Set("resultType", "lite")
	q.Set("pageSize", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, europePMCSearchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating Europe PMC request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("Europe PMC request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Europe PMC returned HTTP %d", resp.StatusCode)
	}

	var r europePMCResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("parsing Europe PMC response: %w", err)
	}

	for _, rec := range r.ResultList.Result {
		if rec.PMCID == "" || rec.HasPDF == "N" {
			continue
		}
		return RenderURL(rec.PMCID), nil
	}
	return "", nil
}
