// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arXiv asks clients to keep one request every three seconds.
const arxivInterval = 3 * time.Second

var arxivVersionSuffix = regexp.MustCompile(`v\d+$`)

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	clientBase
}

// NewArxivClient creates an arXiv client.
func NewArxivClient(opts ...Option) *ArxivClient {
	return &ArxivClient{clientBase: newClientBase(types.SourceArxiv, fixedInterval(arxivInterval), opts)}
}

// Search returns up to limit entries matching query. Queries that already
// use arXiv field syntax ("ti:", "au:") are passed through.
func (c *ArxivClient) Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error) {
	params := url.Values{
		"search_query": {buildArxivQuery(query, yearFrom, yearTo)},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	feed, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var papers []types.PaperRecord
	for _, entry := range feed.Entries {
		if p, ok := entry.toPaper(); ok {
			papers = append(papers, p)
		}
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// GetByID fetches one entry by arXiv ID, with or without an "arxiv:" prefix.
func (c *ArxivClient) GetByID(ctx context.Context, id string) (*types.PaperRecord, error) {
	id = strings.TrimPrefix(strings.TrimPrefix(id, "arXiv:"), "arxiv:")

	feed, err := c.query(ctx, url.Values{"id_list": {id}})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, entry := range feed.Entries {
		if p, ok := entry.toPaper(); ok {
			return &p, nil
		}
	}
	return nil, nil
}

func (c *ArxivClient) query(ctx context.Context, params url.Values) (*arxivFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(arxivAPIBase)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, err := c.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, c.decodeError(err)
	}
	return &feed, nil
}

// buildArxivQuery constructs the search_query parameter, appending a
// submittedDate range when a year bound is given.
func buildArxivQuery(query string, yearFrom, yearTo *int) string {
	q := query
	if !strings.Contains(query, ":") {
		q = "all:" + query
	}
	if yearFrom == nil && yearTo == nil {
		return q
	}

	from, to := "000001010000", "999912312359"
	if yearFrom != nil {
		from = fmt.Sprintf("%04d01010000", *yearFrom)
	}
	if yearTo != nil {
		to = fmt.Sprintf("%04d12312359", *yearTo)
	}
	return fmt.Sprintf("%s AND submittedDate:[%s TO %s]", q, from, to)
}

func (e arxivEntry) toPaper() (types.PaperRecord, bool) {
	arxivID := extractArxivID(e.ID)
	if arxivID == "" {
		return types.PaperRecord{}, false
	}

	p := types.PaperRecord{
		PaperID:      "arxiv:" + arxivVersionSuffix.ReplaceAllString(arxivID, ""),
		ArxivID:      arxivID,
		DOI:          strings.TrimSpace(e.DOI),
		Title:        collapseSpace(e.Title),
		Abstract:     collapseSpace(e.Summary),
		IsOpenAccess: true,
		SourceAPI:    types.SourceArxiv,
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}

	for _, a := range e.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		p.Authors = append(p.Authors, types.Author{Name: name, Affiliation: strings.TrimSpace(a.Affiliation)})
	}

	if len(e.Published) >= 4 {
		if y, err := strconv.Atoi(e.Published[:4]); err == nil {
			p.PublicationYear = types.Int(y)
		}
	}
	if e.PrimaryCategory.Term != "" {
		p.Venue = "arXiv:" + e.PrimaryCategory.Term
	}
	for _, l := range e.Links {
		if l.Title == "pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	return p, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041v1").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(idURL[idx+len(prefix):])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string        `xml:"id"`
	Title           string        `xml:"title"`
	Summary         string        `xml:"summary"`
	Published       string        `xml:"published"`
	Authors         []arxivAuthor `xml:"author"`
	Links           []arxivLink   `xml:"link"`
	DOI             string        `xml:"http://arxiv.org/schemas/atom doi"`
	PrimaryCategory arxivCategory `xml:"http://arxiv.org/schemas/atom primary_category"`
}

type arxivAuthor struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"http://arxiv.org/schemas/atom affiliation"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}
