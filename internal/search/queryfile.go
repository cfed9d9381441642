// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// QueryFile is the on-disk representation of a search request and its
// results. The researcher can save a search to a file and reload it later
// without re-querying APIs, or write only the request block by hand and
// run it with "search --from".
type QueryFile struct {
	Request RequestParams       `yaml:"request"`
	Results []types.PaperRecord `yaml:"results,omitempty"`
	Summary *QuerySummary       `yaml:"summary,omitempty"`
}

// RequestParams stores the request in a hand-editable form.
type RequestParams struct {
	Query          string   `yaml:"query"`
	LimitPerSource int      `yaml:"limit_per_source,omitempty"`
	Sources        []string `yaml:"sources,omitempty"`
	YearFrom       *int     `yaml:"year_from,omitempty"`
	YearTo         *int     `yaml:"year_to,omitempty"`

	// Deduplicate defaults to true when omitted.
	Deduplicate *bool `yaml:"deduplicate,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int               `yaml:"total"`
	SourceCounts      map[string]int    `yaml:"source_counts"`
	DuplicatesRemoved int               `yaml:"duplicates_removed"`
	Errors            map[string]string `yaml:"errors,omitempty"`
	Timestamp         time.Time         `yaml:"timestamp"`
}

// WriteQueryFile saves the request and its result to a YAML file.
func WriteQueryFile(path string, req types.SearchRequest, res types.AggregateResult) error {
	qf := QueryFile{
		Request: paramsFromRequest(req),
		Results: res.Results,
		Summary: &QuerySummary{
			Total:             len(res.Results),
			SourceCounts:      res.SourceCounts,
			DuplicatesRemoved: res.DuplicatesRemoved,
			Errors:            res.Errors,
			Timestamp:         time.Now().UTC(),
		},
	}
	if len(qf.Summary.Errors) == 0 {
		qf.Summary.Errors = nil
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// LoadRequestFile reads a query file and returns its request, with defaults
// applied for an omitted limit and deduplication flag.
func LoadRequestFile(path string) (types.SearchRequest, error) {
	qf, err := ReadQueryFile(path)
	if err != nil {
		return types.SearchRequest{}, err
	}
	return qf.Request.ToRequest()
}

// ToRequest converts stored RequestParams back into a SearchRequest.
func (p RequestParams) ToRequest() (types.SearchRequest, error) {
	req := types.NewSearchRequest(p.Query)
	if p.LimitPerSource != 0 {
		req.LimitPerSource = p.LimitPerSource
	}
	if p.Deduplicate != nil {
		req.Deduplicate = *p.Deduplicate
	}
	req.YearFrom, req.YearTo = p.YearFrom, p.YearTo

	sources, err := types.ParseSourceTags(p.Sources)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Sources = sources
	return req, nil
}

func paramsFromRequest(req types.SearchRequest) RequestParams {
	dedup := req.Deduplicate
	p := RequestParams{
		Query:          req.Query,
		LimitPerSource: req.LimitPerSource,
		YearFrom:       req.YearFrom,
		YearTo:         req.YearTo,
		Deduplicate:    &dedup,
	}
	for _, s := range req.Sources {
		p.Sources = append(p.Sources, string(s))
	}
	return p
}
