// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// IdentifierType classifies a paper identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypePubMed
	TypeCore
	TypeOpenAlex
	TypeSemanticScholar
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypePubMed:
		return "pmid"
	case TypeCore:
		return "core"
	case TypeOpenAlex:
		return "openalex"
	case TypeSemanticScholar:
		return "semantic_scholar"
	default:
		return "unknown"
	}
}

var (
	// arxivPattern matches "2301.07041", "arXiv:2301.07041", "2301.07041v2".
	arxivPattern = regexp.MustCompile(`(?i)^(?:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

	// doiPattern matches bare, "doi:", "crossref:" and doi.org forms.
	doiPattern = regexp.MustCompile(`(?i)^(?:doi:|crossref:|https?://(?:dx\.)?doi\.org/)?(10\.\d{4,9}/\S+)$`)

	pmidPattern     = regexp.MustCompile(`(?i)^pmid:\s*(\d+)$`)
	corePattern     = regexp.MustCompile(`(?i)^core:(\S+)$`)
	openAlexPattern = regexp.MustCompile(`(?i)^(?:https://openalex\.org/)?(W\d+)$`)
	s2Pattern       = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// Classify determines the identifier type and returns the normalized form:
// prefixes and resolver URLs are removed.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}
	if m := doiPattern.FindStringSubmatch(identifier); m != nil {
		return TypeDOI, m[1]
	}
	if m := pmidPattern.FindStringSubmatch(identifier); m != nil {
		return TypePubMed, m[1]
	}
	if m := corePattern.FindStringSubmatch(identifier); m != nil {
		return TypeCore, m[1]
	}
	if m := openAlexPattern.FindStringSubmatch(identifier); m != nil {
		return TypeOpenAlex, strings.ToUpper(m[1])
	}
	if s2Pattern.MatchString(identifier) {
		return TypeSemanticScholar, identifier
	}
	return TypeUnknown, identifier
}

// lookup is one GetByID attempt against a source.
type lookup struct {
	source types.SourceTag
	id     string
}

// lookupsFor lists the sources able to resolve an identifier, best first.
func lookupsFor(idType IdentifierType, norm string) []lookup {
	switch idType {
	case TypeArxiv:
		return []lookup{
			{types.SourceArxiv, norm},
			{types.SourceSemanticScholar, "ARXIV:" + arxivVersionSuffix.ReplaceAllString(norm, "")},
		}
	case TypeDOI:
		return []lookup{
			{types.SourceOpenAlex, norm},
			{types.SourceCrossRef, norm},
			{types.SourceSemanticScholar, "DOI:" + norm},
		}
	case TypePubMed:
		return []lookup{
			{types.SourcePubMed, norm},
			{types.SourceSemanticScholar, "PMID:" + norm},
		}
	case TypeCore:
		return []lookup{{types.SourceCore, norm}}
	case TypeOpenAlex:
		return []lookup{{types.SourceOpenAlex, norm}}
	case TypeSemanticScholar:
		return []lookup{{types.SourceSemanticScholar, norm}}
	}
	return nil
}

// Resolve fetches a single paper by identifier, trying each configured
// source that understands the identifier until one has the record. It
// returns ErrNotFound when no source knows it and ErrInvalidRequest when
// the identifier is not recognized.
func Resolve(ctx context.Context, clients map[types.SourceTag]SourceClient, identifier string) (*types.PaperRecord, error) {
	idType, norm := Classify(identifier)
	if idType == TypeUnknown {
		return nil, fmt.Errorf("%w: unrecognized identifier %q", ErrInvalidRequest, identifier)
	}

	var errs []error
	tried := 0
	for _, l := range lookupsFor(idType, norm) {
		client, ok := clients[l.source]
		if !ok {
			continue
		}
		tried++
		p, err := client.GetByID(ctx, l.id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", l.source, err))
			continue
		}
		if p != nil {
			return p, nil
		}
	}

	if tried == 0 {
		return nil, fmt.Errorf("%w: no configured source resolves %s identifiers", ErrInvalidRequest, idType)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, identifier)
}
