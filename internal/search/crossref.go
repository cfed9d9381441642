// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// crossrefAPIBase is the CrossRef REST API root. Declared as a var so tests
// can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org"

const crossrefMaxRows = 1000

var jatsTag = regexp.MustCompile(`</?jats:[^>]*>`)

// CrossRefClient queries the CrossRef works API. CrossRef publishes no hard
// limit; a mailto puts requests in the polite pool.
type CrossRefClient struct {
	clientBase
}

// NewCrossRefClient creates a CrossRef client.
func NewCrossRefClient(opts ...Option) *CrossRefClient {
	return &CrossRefClient{clientBase: newClientBase(types.SourceCrossRef, fixedInterval(0), opts)}
}

// Search returns up to limit works ordered by relevance.
func (c *CrossRefClient) Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error) {
	params := url.Values{
		"query":  {query},
		"rows":   {strconv.Itoa(min(limit, crossrefMaxRows))},
		"offset": {"0"},
		"sort":   {"relevance"},
		"order":  {"desc"},
	}
	var filters []string
	if yearFrom != nil {
		filters = append(filters, fmt.Sprintf("from-pub-date:%04d-01-01", *yearFrom))
	}
	if yearTo != nil {
		filters = append(filters, fmt.Sprintf("until-pub-date:%04d-12-31", *yearTo))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	var cr crossrefListResponse
	if err := c.getJSON(ctx, c.endpoint(crossrefAPIBase)+"/works?"+params.Encode(), &cr); err != nil {
		return nil, err
	}

	papers := make([]types.PaperRecord, 0, len(cr.Message.Items))
	for _, item := range cr.Message.Items {
		papers = append(papers, item.toPaper())
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// GetByID fetches one work by DOI. A "crossref:" prefix or a doi.org URL is
// accepted.
func (c *CrossRefClient) GetByID(ctx context.Context, id string) (*types.PaperRecord, error) {
	doi := stripDOIPrefix(strings.TrimPrefix(id, "crossref:"))
	reqURL := c.endpoint(crossrefAPIBase) + "/works/" + doi
	if c.email != "" {
		reqURL += "?" + url.Values{"mailto": {c.email}}.Encode()
	}

	var cr crossrefItemResponse
	if err := c.getJSON(ctx, reqURL, &cr); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	p := cr.Message.toPaper()
	return &p, nil
}

func (c *CrossRefClient) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.fetch(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return c.decodeError(err)
	}
	return nil
}

func (w crossrefWork) toPaper() types.PaperRecord {
	p := types.PaperRecord{
		DOI:            w.DOI,
		Title:          "Untitled",
		Abstract:       strings.TrimSpace(jatsTag.ReplaceAllString(w.Abstract, "")),
		CitationCount:  w.IsReferencedByCount,
		ReferenceCount: w.ReferencesCount,
		SourceAPI:      types.SourceCrossRef,
	}
	if w.DOI != "" {
		p.PaperID = "crossref:" + w.DOI
	} else {
		p.PaperID = "crossref:" + w.URL
	}
	if len(w.Title) > 0 && w.Title[0] != "" {
		p.Title = w.Title[0]
	}
	if len(w.ContainerTitle) > 0 {
		p.Venue = w.ContainerTitle[0]
	}

	for _, a := range w.Author {
		name := strings.TrimSpace(strings.Join([]string{a.Given, a.Family}, " "))
		if name == "" {
			continue
		}
		author := types.Author{Name: name, ORCID: stripORCIDPrefix(a.ORCID)}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		p.Authors = append(p.Authors, author)
	}

	for _, d := range []*crossrefDate{w.PublishedPrint, w.PublishedOnline, w.Created} {
		if y, ok := d.year(); ok {
			p.PublicationYear = types.Int(y)
			break
		}
	}

	for _, lic := range w.License {
		u := strings.ToLower(lic.URL)
		if strings.Contains(u, "creativecommons") || strings.Contains(u, "open") {
			p.IsOpenAccess = true
			break
		}
	}
	for _, l := range w.Link {
		if l.ContentType == "application/pdf" {
			p.PDFURL = l.URL
			break
		}
	}
	return p
}

// CrossRef API JSON structures.
type crossrefListResponse struct {
	Status  string `json:"status"`
	Message struct {
		TotalResults int            `json:"total-results"`
		Items        []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefItemResponse struct {
	Status  string       `json:"status"`
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI                 string           `json:"DOI"`
	URL                 string           `json:"URL"`
	Title               []string         `json:"title"`
	Author              []crossrefAuthor `json:"author"`
	Abstract            string           `json:"abstract"`
	PublishedPrint      *crossrefDate    `json:"published-print"`
	PublishedOnline     *crossrefDate    `json:"published-online"`
	Created             *crossrefDate    `json:"created"`
	ContainerTitle      []string         `json:"container-title"`
	License             []crossrefLink   `json:"license"`
	Link                []crossrefLink   `json:"link"`
	IsReferencedByCount *int             `json:"is-referenced-by-count"`
	ReferencesCount     *int             `json:"references-count"`
}

type crossrefAuthor struct {
	Given       string `json:"given"`
	Family      string `json:"family"`
	ORCID       string `json:"ORCID"`
	Affiliation []struct {
		Name string `json:"name"`
	} `json:"affiliation"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d *crossrefDate) year() (int, bool) {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0, false
	}
	return d.DateParts[0][0], true
}

type crossrefLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
