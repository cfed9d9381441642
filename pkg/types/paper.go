// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// SourceTag identifies the external bibliographic API a record came from.
type SourceTag string

const (
	SourceOpenAlex        SourceTag = "openalex"
	SourceArxiv           SourceTag = "arxiv"
	SourcePubMed          SourceTag = "pubmed"
	SourceCrossRef        SourceTag = "crossref"
	SourceCore            SourceTag = "core"
	SourceSemanticScholar SourceTag = "semantic_scholar"
)

// AllSources lists every supported source in canonical order.
var AllSources = []SourceTag{
	SourceOpenAlex,
	SourceArxiv,
	SourcePubMed,
	SourceCrossRef,
	SourceCore,
	SourceSemanticScholar,
}

// DefaultSources are queried when a request names no sources. All three
// work without an API key.
var DefaultSources = []SourceTag{SourceOpenAlex, SourceArxiv, SourceCrossRef}

// ParseSourceTag validates a source name. Matching is case-insensitive and
// accepts "semanticscholar" and "s2" as aliases.
func ParseSourceTag(s string) (SourceTag, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "semanticscholar", "s2":
		return SourceSemanticScholar, nil
	}
	for _, tag := range AllSources {
		if string(tag) == name {
			return tag, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// ParseSourceTags validates a list of source names, preserving order and
// dropping repeats.
func ParseSourceTags(names []string) ([]SourceTag, error) {
	var tags []SourceTag
	seen := make(map[SourceTag]bool)
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		tag, err := ParseSourceTag(n)
		if err != nil {
			return nil, err
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags, nil
}

// Author is a paper author as reported by a source.
type Author struct {
	// Name is the display name ("Given Family").
	Name string `json:"name" yaml:"name"`

	// Affiliation is the first reported institution, if any.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`

	// ORCID is the bare ORCID identifier without URL prefix.
	ORCID string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
}

// PaperRecord is the normalized paper shape every source client produces.
// Records are built once by a client and never modified afterwards;
// deduplication only chooses between records.
type PaperRecord struct {
	// PaperID is the source-scoped identifier (e.g. "W2741809807",
	// "arxiv:2301.07041", "pmid:123"). Unique only within its source.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// DOI is the bare DOI without resolver prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is the arXiv identifier as reported, version suffix included.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// Title is the paper title. Never empty.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PublicationYear is the year of publication, nil when unknown.
	PublicationYear *int `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`

	// Venue is the journal or conference name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// IsOpenAccess reports whether the source marks the paper open access.
	IsOpenAccess bool `json:"is_open_access" yaml:"is_open_access"`

	// PDFURL is a direct link to a PDF, if the source knows one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CitationCount is the number of citing works, nil when the source
	// does not report it.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// ReferenceCount is the number of referenced works, nil when unknown.
	ReferenceCount *int `json:"reference_count,omitempty" yaml:"reference_count,omitempty"`

	// SourceAPI is the API that produced the record.
	SourceAPI SourceTag `json:"source_api" yaml:"source_api"`
}

// Year returns the publication year or 0.
func (p PaperRecord) Year() int {
	if p.PublicationYear == nil {
		return 0
	}
	return *p.PublicationYear
}

// Citations returns the citation count or 0.
func (p PaperRecord) Citations() int {
	if p.CitationCount == nil {
		return 0
	}
	return *p.CitationCount
}

// AuthorNames returns the author display names in order.
func (p PaperRecord) AuthorNames() []string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	return names
}

// Int returns a pointer to v. Source clients use it for optional counts.
func Int(v int) *int {
	return &v
}
