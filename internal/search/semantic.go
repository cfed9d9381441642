// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticFields = "paperId,externalIds,title,abstract,venue,year,authors,citationCount,referenceCount,isOpenAccess,openAccessPdf,fieldsOfStudy"

// The public pool allows roughly one request per three seconds without a key.
const (
	semanticInterval      = 3 * time.Second
	semanticKeyedInterval = 1 * time.Second
	semanticMaxPageSize   = 100
)

// SemanticScholarClient queries the Semantic Scholar Graph API.
type SemanticScholarClient struct {
	clientBase
}

// NewSemanticScholarClient creates a Semantic Scholar client.
func NewSemanticScholarClient(opts ...Option) *SemanticScholarClient {
	return &SemanticScholarClient{
		clientBase: newClientBase(types.SourceSemanticScholar, keyedInterval(semanticInterval, semanticKeyedInterval), opts),
	}
}

// Search returns up to limit papers matching query.
func (c *SemanticScholarClient) Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error) {
	var papers []types.PaperRecord

	for offset := 0; len(papers) < limit; {
		pageSize := min(limit-len(papers), semanticMaxPageSize)
		params := url.Values{
			"query":  {query},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(pageSize)},
			"fields": {semanticFields},
		}
		if yr := buildYearRange(yearFrom, yearTo); yr != "" {
			params.Set("year", yr)
		}

		var sr semanticResponse
		if err := c.getJSON(ctx, c.endpoint(semanticAPIBase)+"/paper/search?"+params.Encode(), &sr); err != nil {
			return nil, err
		}
		for _, sp := range sr.Data {
			papers = append(papers, sp.toPaper())
		}

		if len(sr.Data) < pageSize || sr.Next == nil {
			break
		}
		offset = *sr.Next
	}
	return papers, nil
}

// GetByID fetches one paper. The ID may be a Semantic Scholar paper ID or a
// prefixed external ID such as "DOI:10.1/x" or "ARXIV:2301.00001".
func (c *SemanticScholarClient) GetByID(ctx context.Context, id string) (*types.PaperRecord, error) {
	reqURL := c.endpoint(semanticAPIBase) + "/paper/" + url.PathEscape(id) + "?" + url.Values{"fields": {semanticFields}}.Encode()

	var sp semanticPaper
	if err := c.getJSON(ctx, reqURL, &sp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	p := sp.toPaper()
	return &p, nil
}

func (c *SemanticScholarClient) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	body, err := c.fetch(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return c.decodeError(err)
	}
	return nil
}

// buildYearRange returns a Semantic Scholar year filter string
// ("2020-2023", "2020-" or "-2023").
func buildYearRange(from, to *int) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("%d-%d", *from, *to)
	case from != nil:
		return fmt.Sprintf("%d-", *from)
	case to != nil:
		return fmt.Sprintf("-%d", *to)
	default:
		return ""
	}
}

func (sp semanticPaper) toPaper() types.PaperRecord {
	p := types.PaperRecord{
		PaperID:        sp.PaperID,
		DOI:            sp.ExternalIDs.DOI,
		ArxivID:        sp.ExternalIDs.ArXiv,
		Title:          sp.Title,
		Abstract:       sp.Abstract,
		Venue:          sp.Venue,
		IsOpenAccess:   sp.IsOpenAccess,
		CitationCount:  sp.CitationCount,
		ReferenceCount: sp.ReferenceCount,
		SourceAPI:      types.SourceSemanticScholar,
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	if sp.Year > 0 {
		p.PublicationYear = types.Int(sp.Year)
	}
	if sp.OpenAccessPDF != nil {
		p.PDFURL = sp.OpenAccessPDF.URL
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, types.Author{Name: a.Name})
		}
	}
	return p
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Next   *int            `json:"next"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID        string              `json:"paperId"`
	Title          string              `json:"title"`
	Abstract       string              `json:"abstract"`
	Venue          string              `json:"venue"`
	Year           int                 `json:"year"`
	Authors        []semanticAuthor    `json:"authors"`
	ExternalIDs    semanticExternalIDs `json:"externalIds"`
	CitationCount  *int                `json:"citationCount"`
	ReferenceCount *int                `json:"referenceCount"`
	IsOpenAccess   bool                `json:"isOpenAccess"`
	OpenAccessPDF  *semanticPDF        `json:"openAccessPdf"`
	FieldsOfStudy  []string            `json:"fieldsOfStudy"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

type semanticPDF struct {
	URL string `json:"url"`
}
