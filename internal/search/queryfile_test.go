// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

func TestWriteReadQueryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.yaml")

	req := types.NewSearchRequest("graph neural networks")
	req.Sources = []types.SourceTag{types.SourceOpenAlex, types.SourceArxiv}
	req.YearFrom = types.Int(2019)
	res := types.AggregateResult{
		Query:             req.Query,
		Results:           []types.PaperRecord{{PaperID: "W1", Title: "GNN", SourceAPI: types.SourceOpenAlex}},
		SourceCounts:      map[string]int{"openalex": 1, "arxiv": 0},
		Errors:            map[string]string{"arxiv": "timeout"},
		DuplicatesRemoved: 0,
	}

	if err := WriteQueryFile(path, req, res); err != nil {
		t.Fatalf("WriteQueryFile() error: %v", err)
	}
	qf, err := ReadQueryFile(path)
	if err != nil {
		t.Fatalf("ReadQueryFile() error: %v", err)
	}

	if qf.Request.Query != req.Query || len(qf.Request.Sources) != 2 {
		t.Errorf("Request = %+v", qf.Request)
	}
	if len(qf.Results) != 1 || qf.Results[0].PaperID != "W1" {
		t.Errorf("Results = %+v", qf.Results)
	}
	if qf.Summary == nil || qf.Summary.Total != 1 || qf.Summary.Errors["arxiv"] != "timeout" {
		t.Errorf("Summary = %+v", qf.Summary)
	}
	if qf.Summary.Timestamp.IsZero() {
		t.Error("Summary.Timestamp not set")
	}

	back, err := qf.Request.ToRequest()
	if err != nil {
		t.Fatalf("ToRequest() error: %v", err)
	}
	if back.YearFrom == nil || *back.YearFrom != 2019 || !back.Deduplicate || back.LimitPerSource != req.LimitPerSource {
		t.Errorf("round-tripped request = %+v", back)
	}
}

func TestLoadRequestFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hand.yaml")
	content := "request:\n  query: protein folding\n  sources: [PubMed, s2]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	req, err := LoadRequestFile(path)
	if err != nil {
		t.Fatalf("LoadRequestFile() error: %v", err)
	}
	if req.LimitPerSource != types.DefaultLimitPerSource {
		t.Errorf("LimitPerSource = %d, want default", req.LimitPerSource)
	}
	if !req.Deduplicate {
		t.Error("Deduplicate should default to true")
	}
	if len(req.Sources) != 2 || req.Sources[0] != types.SourcePubMed || req.Sources[1] != types.SourceSemanticScholar {
		t.Errorf("Sources = %v", req.Sources)
	}
}

func TestLoadRequestFileDeduplicateFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodedup.yaml")
	if err := os.WriteFile(path, []byte("request:\n  query: q\n  deduplicate: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	req, err := LoadRequestFile(path)
	if err != nil {
		t.Fatalf("LoadRequestFile() error: %v", err)
	}
	if req.Deduplicate {
		t.Error("explicit deduplicate: false was ignored")
	}
}

func TestLoadRequestFileBadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("request:\n  query: q\n  sources: [scopus]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRequestFile(path); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestReadQueryFileMissing(t *testing.T) {
	if _, err := ReadQueryFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
