// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research tool:
// normalized paper records, aggregate search requests and results, chat
// intents, the project library, and configuration.
package types

const (
	// MaxQueryLength is the longest accepted search query.
	MaxQueryLength = 1000

	// MinLimitPerSource and MaxLimitPerSource bound SearchRequest.LimitPerSource.
	MinLimitPerSource = 1
	MaxLimitPerSource = 100

	// DefaultLimitPerSource is used when a request leaves the limit unset.
	DefaultLimitPerSource = 25
)

// SearchRequest is one aggregate search across several sources. It is
// built per call and never persisted.
type SearchRequest struct {
	// Query is the free-text search string. Must not be empty.
	Query string `json:"query" yaml:"query"`

	// LimitPerSource caps the number of records each source returns (1-100).
	LimitPerSource int `json:"limit_per_source" yaml:"limit_per_source"`

	// Sources lists the sources to query, in the order their results are
	// concatenated. Empty means DefaultSources.
	Sources []SourceTag `json:"sources,omitempty" yaml:"sources,omitempty"`

	// YearFrom restricts results to papers published in or after this year.
	YearFrom *int `json:"year_from,omitempty" yaml:"year_from,omitempty"`

	// YearTo restricts results to papers published in or before this year.
	YearTo *int `json:"year_to,omitempty" yaml:"year_to,omitempty"`

	// Deduplicate merges records that share a DOI.
	Deduplicate bool `json:"deduplicate" yaml:"deduplicate"`
}

// NewSearchRequest returns a request with default limit, sources and
// deduplication enabled.
func NewSearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:          query,
		LimitPerSource: DefaultLimitPerSource,
		Deduplicate:    true,
	}
}

// AggregateResult is the merged outcome of a SearchRequest.
// Sum(SourceCounts) is always >= len(Results).
type AggregateResult struct {
	// Query echoes the request query.
	Query string `json:"query" yaml:"query"`

	// Results is the concatenated, optionally deduplicated paper list.
	Results []PaperRecord `json:"results" yaml:"results"`

	// SourceCounts holds the number of records each source returned.
	// Failed sources are present with a count of 0.
	SourceCounts map[string]int `json:"source_counts" yaml:"source_counts"`

	// Errors maps a failed source to its error message.
	Errors map[string]string `json:"errors" yaml:"errors"`

	// TotalBeforeDedup is the length of the concatenated list.
	TotalBeforeDedup int `json:"total_before_dedup" yaml:"total_before_dedup"`

	// DuplicatesRemoved is TotalBeforeDedup minus len(Results).
	DuplicatesRemoved int `json:"duplicates_removed" yaml:"duplicates_removed"`
}

// TotalFromSources returns the sum of SourceCounts.
func (r AggregateResult) TotalFromSources() int {
	total := 0
	for _, n := range r.SourceCounts {
		total += n
	}
	return total
}

// Failed reports whether every queried source failed.
func (r AggregateResult) Failed() bool {
	return len(r.SourceCounts) > 0 && len(r.Errors) == len(r.SourceCounts)
}
