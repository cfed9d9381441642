// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities root. Declared as a var so tests
// can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// NCBI allows 3 requests per second anonymously and 10 with a key.
const (
	pubmedInterval      = 340 * time.Millisecond
	pubmedKeyedInterval = 100 * time.Millisecond
	pubmedTool          = "research-tool"
	pubmedDefaultEmail  = "research-tool@example.org"
)

var markupTag = regexp.MustCompile(`<[^>]+>`)

// PubMedClient queries PubMed through esearch (PMIDs) then efetch (records).
type PubMedClient struct {
	clientBase
}

// NewPubMedClient creates a PubMed client.
func NewPubMedClient(opts ...Option) *PubMedClient {
	return &PubMedClient{
		clientBase: newClientBase(types.SourcePubMed, keyedInterval(pubmedInterval, pubmedKeyedInterval), opts),
	}
}

// Search runs esearch for PMIDs, then fetches the articles in one efetch.
func (c *PubMedClient) Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error) {
	params := c.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retstart", "0")
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")
	if yearFrom != nil || yearTo != nil {
		from, to := "1800/01/01", "3000/12/31"
		if yearFrom != nil {
			from = fmt.Sprintf("%04d/01/01", *yearFrom)
		}
		if yearTo != nil {
			to = fmt.Sprintf("%04d/12/31", *yearTo)
		}
		params.Set("mindate", from)
		params.Set("maxdate", to)
		params.Set("datetype", "pdat")
	}

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var sr pubmedSearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, c.decodeError(err)
	}
	if len(sr.Result.IDList) == 0 {
		return nil, nil
	}

	papers, err := c.fetchArticles(ctx, sr.Result.IDList)
	if err != nil {
		return nil, err
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// GetByID fetches one article by PMID, with or without a "pmid:" prefix.
func (c *PubMedClient) GetByID(ctx context.Context, id string) (*types.PaperRecord, error) {
	pmid := strings.TrimPrefix(strings.ToLower(id), "pmid:")
	papers, err := c.fetchArticles(ctx, []string{pmid})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(papers) == 0 {
		return nil, nil
	}
	return &papers[0], nil
}

func (c *PubMedClient) fetchArticles(ctx context.Context, pmids []string) ([]types.PaperRecord, error) {
	params := c.baseParams()
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, c.decodeError(err)
	}

	papers := make([]types.PaperRecord, 0, len(set.Articles))
	for _, a := range set.Articles {
		if p, ok := a.toPaper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func (c *PubMedClient) baseParams() url.Values {
	email := c.email
	if email == "" {
		email = pubmedDefaultEmail
	}
	params := url.Values{"tool": {pubmedTool}, "email": {email}}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}

func (c *PubMedClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pubmedAPIBase)+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.fetch(ctx, req)
}

func (a pubmedArticle) toPaper() (types.PaperRecord, bool) {
	pmid := strings.TrimSpace(a.Citation.PMID)
	if pmid == "" {
		return types.PaperRecord{}, false
	}
	art := a.Citation.Article

	p := types.PaperRecord{
		PaperID:   "pmid:" + pmid,
		Title:     innerText(art.Title.Inner),
		Venue:     strings.TrimSpace(art.Journal.Title),
		SourceAPI: types.SourcePubMed,
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}

	var sections []string
	for _, at := range art.Abstract {
		text := innerText(at.Text)
		if at.Label != "" {
			text = at.Label + ": " + text
		}
		sections = append(sections, text)
	}
	p.Abstract = strings.Join(sections, " ")

	for _, au := range art.Authors {
		if au.LastName == "" {
			continue
		}
		name := au.LastName
		if au.ForeName != "" {
			name = au.ForeName + " " + name
		}
		author := types.Author{Name: name}
		if len(au.Affiliations) > 0 {
			author.Affiliation = strings.TrimSpace(au.Affiliations[0])
		}
		p.Authors = append(p.Authors, author)
	}

	if y, err := strconv.Atoi(strings.TrimSpace(art.Journal.PubDate.Year)); err == nil {
		p.PublicationYear = types.Int(y)
	}

	var pmc string
	for _, id := range a.ArticleIDs {
		switch id.IDType {
		case "doi":
			if p.DOI == "" {
				p.DOI = strings.TrimSpace(id.Value)
			}
		case "pmc":
			if pmc == "" {
				pmc = strings.TrimSpace(id.Value)
			}
		}
	}
	if pmc != "" {
		p.IsOpenAccess = true
		p.PDFURL = "https://www.ncbi.nlm.nih.gov/pmc/articles/" + pmc + "/pdf/"
	}
	return p, true
}

// innerText strips inline markup (<i>, <sup>) from an element's inner XML.
func innerText(inner string) string {
	return collapseSpace(html.UnescapeString(markupTag.ReplaceAllString(inner, "")))
}

// E-utilities JSON and XML structures.
type pubmedSearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation   pubmedCitation    `xml:"MedlineCitation"`
	ArticleIDs []pubmedArticleID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedCitation struct {
	PMID    string            `xml:"PMID"`
	Article pubmedArticleBody `xml:"Article"`
}

type pubmedArticleBody struct {
	Title    pubmedInner          `xml:"ArticleTitle"`
	Abstract []pubmedAbstractText `xml:"Abstract>AbstractText"`
	Authors  []pubmedAuthor       `xml:"AuthorList>Author"`
	Journal  pubmedJournal        `xml:"Journal"`
}

type pubmedInner struct {
	Inner string `xml:",innerxml"`
}

type pubmedAbstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",innerxml"`
}

type pubmedAuthor struct {
	LastName     string   `xml:"LastName"`
	ForeName     string   `xml:"ForeName"`
	Affiliations []string `xml:"AffiliationInfo>Affiliation"`
}

type pubmedJournal struct {
	Title   string `xml:"Title"`
	PubDate struct {
		Year string `xml:"Year"`
	} `xml:"JournalIssue>PubDate"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
