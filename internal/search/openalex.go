// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// openAlexBase is the OpenAlex Works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexBase = "https://api.openalex.org/works"

const openAlexMaxPerPage = 200

// OpenAlexClient queries the OpenAlex API. OpenAlex has no hard rate limit;
// an email puts requests in the polite pool.
type OpenAlexClient struct {
	clientBase
}

// NewOpenAlexClient creates an OpenAlex client.
func NewOpenAlexClient(opts ...Option) *OpenAlexClient {
	return &OpenAlexClient{clientBase: newClientBase(types.SourceOpenAlex, fixedInterval(0), opts)}
}

// Search returns up to limit works matching query, paging as needed.
func (c *OpenAlexClient) Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error) {
	perPage := min(limit, openAlexMaxPerPage)
	var papers []types.PaperRecord

	for page := 1; len(papers) < limit; page++ {
		params := url.Values{
			"search":   {query},
			"per_page": {strconv.Itoa(perPage)},
			"page":     {strconv.Itoa(page)},
		}
		if f := openAlexYearFilter(yearFrom, yearTo); f != "" {
			params.Set("filter", f)
		}
		if c.email != "" {
			params.Set("mailto", c.email)
		}

		var oar openAlexResponse
		if err := c.getJSON(ctx, c.endpoint(openAlexBase)+"?"+params.Encode(), &oar); err != nil {
			return nil, err
		}

		for _, work := range oar.Results {
			papers = append(papers, work.toPaper())
		}
		if len(oar.Results) < perPage {
			break
		}
	}

	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// GetByID fetches one work by DOI or OpenAlex ID.
func (c *OpenAlexClient) GetByID(ctx context.Context, id string) (*types.PaperRecord, error) {
	path := id
	if strings.HasPrefix(id, "10.") {
		path = "doi:" + id
	}
	reqURL := c.endpoint(openAlexBase) + "/" + path
	if c.email != "" {
		reqURL += "?" + url.Values{"mailto": {c.email}}.Encode()
	}

	var work openAlexWork
	if err := c.getJSON(ctx, reqURL, &work); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	p := work.toPaper()
	return &p, nil
}

func (c *OpenAlexClient) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
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

// openAlexYearFilter renders the publication_year filter. An open bound
// uses OpenAlex's "<" / ">" forms.
func openAlexYearFilter(yearFrom, yearTo *int) string {
	switch {
	case yearFrom != nil && yearTo != nil:
		return fmt.Sprintf("publication_year:%d-%d", *yearFrom, *yearTo)
	case yearFrom != nil:
		return fmt.Sprintf("publication_year:>%d", *yearFrom-1)
	case yearTo != nil:
		return fmt.Sprintf("publication_year:<%d", *yearTo+1)
	}
	return ""
}

func (w openAlexWork) toPaper() types.PaperRecord {
	p := types.PaperRecord{
		PaperID:      lastPathSegment(w.ID),
		Title:        w.Title,
		Abstract:     reconstructAbstract(w.AbstractInvertedIndex),
		IsOpenAccess: w.OpenAccess.IsOA,
		SourceAPI:    types.SourceOpenAlex,
	}
	if p.Title == "" {
		p.Title = w.DisplayName
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}

	doi := w.DOI
	if doi == "" {
		doi = w.IDs.DOI
	}
	p.DOI = stripDOIPrefix(doi)

	if w.PublicationYear > 0 {
		p.PublicationYear = types.Int(w.PublicationYear)
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		p.Venue = w.PrimaryLocation.Source.DisplayName
	}
	p.PDFURL = w.pdfURL()
	if w.CitedByCount != nil {
		p.CitationCount = types.Int(*w.CitedByCount)
	}
	if w.ReferencedWorksCount != nil {
		p.ReferenceCount = types.Int(*w.ReferencedWorksCount)
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName == "" {
			continue
		}
		author := types.Author{
			Name:  a.Author.DisplayName,
			ORCID: stripORCIDPrefix(a.Author.ORCID),
		}
		if len(a.Institutions) > 0 {
			author.Affiliation = a.Institutions[0].DisplayName
		}
		p.Authors = append(p.Authors, author)
	}
	return p
}

// pdfURL prefers the best OA location's PDF, then the open access URL,
// then the best OA landing page.
func (w openAlexWork) pdfURL() string {
	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		return w.BestOALocation.PDFURL
	}
	if w.OpenAccess.OAURL != "" {
		return w.OpenAccess.OAURL
	}
	if w.BestOALocation != nil {
		return w.BestOALocation.LandingPageURL
	}
	return ""
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

func lastPathSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// stripDOIPrefix removes resolver prefixes so DOIs compare as bare
// "10.xxxx/..." strings.
func stripDOIPrefix(doi string) string {
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(strings.ToLower(doi), prefix) {
			return doi[len(prefix):]
		}
	}
	return doi
}

func stripORCIDPrefix(orcid string) string {
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	return strings.TrimPrefix(orcid, "http://orcid.org/")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DisplayName           string               `json:"display_name"`
	DOI                   string               `json:"doi"`
	IDs                   openAlexIDs          `json:"ids"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	BestOALocation        *openAlexLocation    `json:"best_oa_location"`
	CitedByCount          *int                 `json:"cited_by_count"`
	ReferencedWorksCount  *int                 `json:"referenced_works_count"`
}

type openAlexIDs struct {
	DOI string `json:"doi"`
}

type openAlexAuthorship struct {
	Author       openAlexAuthor        `json:"author"`
	Institutions []openAlexInstitution `json:"institutions"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ORCID       string `json:"orcid"`
}

type openAlexInstitution struct {
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

type openAlexLocation struct {
	PDFURL         string          `json:"pdf_url"`
	LandingPageURL string          `json:"landing_page_url"`
	Source         *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
