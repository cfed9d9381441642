// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// coreAPIBase is the CORE v3 API root. Declared as a var so tests can
// substitute an httptest server.
var coreAPIBase = "https://api.core.ac.uk/v3"

const (
	coreInterval      = 1 * time.Second
	coreKeyedInterval = 200 * time.Millisecond
	coreMaxPageSize   = 100
)

// CoreClient queries the CORE open-access aggregator.
type CoreClient struct {
	clientBase
}

// NewCoreClient creates a CORE client.
func NewCoreClient(opts ...Option) *CoreClient {
	return &CoreClient{clientBase: newClientBase(types.SourceCore, keyedInterval(coreInterval, coreKeyedInterval), opts)}
}

// Search returns up to limit works, paging in blocks of 100.
func (c *CoreClient) Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error) {
	var filters []string
	if yearFrom != nil {
		filters = append(filters, fmt.Sprintf("yearPublished>=%d", *yearFrom))
	}
	if yearTo != nil {
		filters = append(filters, fmt.Sprintf("yearPublished<=%d", *yearTo))
	}

	var papers []types.PaperRecord
	for offset := 0; len(papers) < limit; {
		pageSize := min(limit-len(papers), coreMaxPageSize)
		payload, err := json.Marshal(coreSearchRequest{
			Q:       query,
			Limit:   pageSize,
			Offset:  offset,
			Filters: filters,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding CORE request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(coreAPIBase)+"/search/works", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		var sr coreSearchResponse
		if err := c.do(ctx, req, &sr); err != nil {
			return nil, err
		}
		for _, w := range sr.Results {
			papers = append(papers, w.toPaper())
		}

		if len(sr.Results) < pageSize {
			break
		}
		offset += len(sr.Results)
	}
	return papers, nil
}

// GetByID fetches one work by CORE ID, with or without a "core:" prefix.
func (c *CoreClient) GetByID(ctx context.Context, id string) (*types.PaperRecord, error) {
	id = strings.TrimPrefix(id, "core:")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(coreAPIBase)+"/works/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var w coreWork
	if err := c.do(ctx, req, &w); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	p := w.toPaper()
	return &p, nil
}

func (c *CoreClient) do(ctx context.Context, req *http.Request, v any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

func (w coreWork) toPaper() types.PaperRecord {
	p := types.PaperRecord{
		PaperID:       "core:unknown",
		DOI:           stripDOIPrefix(w.DOI),
		Title:         w.Title,
		Abstract:      strings.TrimSpace(w.Abstract),
		IsOpenAccess:  true,
		CitationCount: w.CitationCount,
		SourceAPI:     types.SourceCore,
	}
	if id := w.ID.String(); id != "" {
		p.PaperID = "core:" + id
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	for _, a := range w.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, types.Author{Name: a.Name})
		}
	}
	if w.YearPublished != nil && *w.YearPublished > 0 {
		p.PublicationYear = types.Int(*w.YearPublished)
	}
	if len(w.Journals) > 0 {
		p.Venue = w.Journals[0].Title
	}
	switch {
	case w.DownloadURL != "":
		p.PDFURL = w.DownloadURL
	case len(w.FullTextURLs) > 0:
		p.PDFURL = w.FullTextURLs[0]
	}
	return p
}

// CORE API JSON structures.
type coreSearchRequest struct {
	Q       string   `json:"q"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Filters []string `json:"filters,omitempty"`
}

type coreSearchResponse struct {
	TotalHits int        `json:"totalHits"`
	Results   []coreWork `json:"results"`
}

type coreWork struct {
	ID            coreID        `json:"id"`
	Title         string        `json:"title"`
	Abstract      string        `json:"abstract"`
	DOI           string        `json:"doi"`
	Authors       []coreNamed   `json:"authors"`
	YearPublished *int          `json:"yearPublished"`
	Journals      []coreJournal `json:"journals"`
	DownloadURL   string        `json:"downloadUrl"`
	FullTextURLs  []string      `json:"fullTextUrls"`
	CitationCount *int          `json:"citationCount"`
}

// coreID accepts the numeric or string IDs CORE emits.
type coreID string

func (id *coreID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = coreID(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = coreID(n.String())
	return nil
}

func (id coreID) String() string { return string(id) }

// coreNamed is an author given either as {"name": "..."} or a bare string.
type coreNamed struct {
	Name string
}

func (n *coreNamed) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &n.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	n.Name = obj.Name
	return nil
}

// coreJournal is a journal given either as {"title": "..."} or a bare string.
type coreJournal struct {
	Title string
}

func (j *coreJournal) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &j.Title)
	}
	var obj struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	j.Title = obj.Title
	return nil
}
