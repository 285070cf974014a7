// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/causal-kg/internal/httputil"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// eutilsBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// Database is the literature database the search stage queries. PubMed
// implements it; tests supply a mock.
type Database interface {
	// Search returns up to max article IDs matching query, in relevance order.
	Search(ctx context.Context, query string, max int) ([]string, error)

	// Fetch returns the bibliographic records of ids, in the order given.
	// IDs the database does not know are omitted.
	Fetch(ctx context.Context, ids []string) ([]types.Article, error)

	// CitationCounts returns how many records cite each of ids.
	CitationCounts(ctx context.Context, ids []string) (map[string]int, error)
}

// PubMed queries PubMed through NCBI E-utilities.
type PubMed struct {
	Client *http.Client

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string

	// Email and Tool identify the caller to NCBI.
	Email string
	Tool  string
}

// NewPubMed returns a PubMed client configured from cfg.
func NewPubMed(client *http.Client, cfg types.SearchConfig) *PubMed {
	return &PubMed{Client: client, APIKey: cfg.NCBIAPIKey, Email: cfg.Email, Tool: "causal-kg"}
}

func (p *PubMed) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if p.Tool != "" {
		params.Set("tool", p.Tool)
	}
	if p.Email != "" {
		params.Set("email", p.Email)
	}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned HTTP %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
	Error string `json:"error"`
}

// Search runs an esearch query against PubMed.
func (p *PubMed) Search(ctx context.Context, query string, max int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}
	if max <= 0 {
		max = types.DefaultMaxResults
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(max))
	params.Set("retmode", "json")

	resp, err := p.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var r esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("esearch: %s", r.Error)
	}
	return r.Result.IDList, nil
}

// PubMed efetch XML structures.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    richText `xml:"ArticleTitle"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Journal struct {
				Title string `xml:"Title"`
				Issue struct {
					PubDate pubDate `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	Data struct {
		IDs []struct {
			Type  string `xml:"IdType,attr"`
			Value string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  richText
}

// UnmarshalXML keeps the Label attribute and flattens the section text.
func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	return a.Text.UnmarshalXML(d, start)
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

func (d pubDate) String() string {
	if d.MedlineDate != "" {
		return d.MedlineDate
	}
	return strings.Join(strings.Fields(d.Year+" "+d.Month+" "+d.Day), " ")
}

// richText is element text with inline markup (<i>, <sup>, ...) flattened.
type richText string

// UnmarshalXML collects the character data of the element and all of its
// descendants.
func (t *richText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tk := tok.(type) {
		case xml.CharData:
			b.Write(tk)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = richText(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		}
	}
}

// Fetch retrieves article records with efetch.
func (p *PubMed) Fetch(ctx context.Context, ids []string) ([]types.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	resp, err := p.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	byID := make(map[string]types.Article, len(set.Articles))
	for _, pa := range set.Articles {
		a := toArticle(pa)
		byID[a.PMID] = a
	}

	out := make([]types.Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func toArticle(pa pubmedArticle) types.Article {
	c := pa.Citation
	a := types.Article{
		PMID:    strings.TrimSpace(c.PMID),
		Title:   string(c.Article.Title),
		PubDate: c.Article.Journal.Issue.PubDate.String(),
		Journal: strings.TrimSpace(c.Article.Journal.Title),
	}

	var sections []string
	for _, at := range c.Article.Abstract.Texts {
		text := string(at.Text)
		if text == "" {
			continue
		}
		if at.Label != "" {
			text = at.Label + ": " + text
		}
		sections = append(sections, text)
	}
	a.Abstract = strings.Join(sections, "\n\n")

	for _, id := range pa.Data.IDs {
		if id.Type == "pmc" {
			a.PMCID = strings.TrimSpace(id.Value)
		}
	}
	return a
}

type elinkResponse struct {
	LinkSets []struct {
		IDs       flexIDs `json:"ids"`
		LinkSetDB []struct {
			LinkName string  `json:"linkname"`
			Links    flexIDs `json:"links"`
		} `json:"linksetdbs"`
	} `json:"linksets"`
}

// flexIDs decodes an ID list whose entries may be JSON strings or numbers.
type flexIDs []string

func (f *flexIDs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		out[i] = strings.Trim(string(r), `"`)
	}
	*f = out
	return nil
}

// CitationCounts counts the PubMed records citing each ID with elink
// (pubmed_pubmed_citedin). IDs absent from the response count zero.
func (p *PubMed) CitationCounts(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	params := url.Values{}
	params.Set("dbfrom", "pubmed")
	params.Set("db", "pubmed")
	params.Set("linkname", "pubmed_pubmed_citedin")
	params.Set("retmode", "json")
	for _, id := range ids {
		params.Add("id", id)
		counts[id] = 0
	}

	resp, err := p.get(ctx, "elink.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var r elinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing elink response: %w", err)
	}

	for _, ls := range r.LinkSets {
		if len(ls.IDs) == 0 {
			continue
		}
		for _, db := range ls.LinkSetDB {
			if db.LinkName == "pubmed_pubmed_citedin" {
				counts[ls.IDs[0]] = len(db.Links)
			}
		}
	}
	return counts, nil
}
