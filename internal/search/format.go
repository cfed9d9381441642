// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// FormatTable writes results as a human-readable table to w, followed by
// per-source counts and any source errors.
func FormatTable(res types.AggregateResult, w io.Writer) {
	if len(res.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
			"#", "Title", "Authors", "Year", "Cites", "Source")
		fmt.Fprintln(w, strings.Repeat("-", 110))

		for i, p := range res.Results {
			year, cites := "", ""
			if p.PublicationYear != nil {
				year = strconv.Itoa(*p.PublicationYear)
			}
			if p.CitationCount != nil {
				cites = strconv.Itoa(*p.CitationCount)
			}
			fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6s  %s\n",
				i+1, truncate(p.Title, 60), formatAuthors(p.AuthorNames()), year, cites, p.SourceAPI)
		}

		fmt.Fprintf(w, "\n%d results", len(res.Results))
		if res.DuplicatesRemoved > 0 {
			fmt.Fprintf(w, " (%d duplicates removed)", res.DuplicatesRemoved)
		}
		fmt.Fprintln(w)
	}

	names := make([]string, 0, len(res.SourceCounts))
	for name := range res.SourceCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if msg, failed := res.Errors[name]; failed {
			fmt.Fprintf(w, "  %-18s failed: %s\n", name, msg)
			continue
		}
		fmt.Fprintf(w, "  %-18s %d\n", name, res.SourceCounts[name])
	}
}

// FormatJSON writes the full aggregate result as indented JSON to w.
func FormatJSON(res types.AggregateResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// FormatPaper writes one record as a detail block.
func FormatPaper(p types.PaperRecord, w io.Writer) {
	fmt.Fprintf(w, "Title:    %s\n", p.Title)
	if len(p.Authors) > 0 {
		fmt.Fprintf(w, "Authors:  %s\n", strings.Join(p.AuthorNames(), ", "))
	}
	if p.PublicationYear != nil {
		fmt.Fprintf(w, "Year:     %d\n", *p.PublicationYear)
	}
	if p.Venue != "" {
		fmt.Fprintf(w, "Venue:    %s\n", p.Venue)
	}
	if p.DOI != "" {
		fmt.Fprintf(w, "DOI:      %s\n", p.DOI)
	}
	if p.ArxivID != "" {
		fmt.Fprintf(w, "arXiv:    %s\n", p.ArxivID)
	}
	if p.CitationCount != nil {
		fmt.Fprintf(w, "Cited by: %d\n", *p.CitationCount)
	}
	if p.PDFURL != "" {
		fmt.Fprintf(w, "PDF:      %s\n", p.PDFURL)
	}
	fmt.Fprintf(w, "Source:   %s (%s)\n", p.SourceAPI, p.PaperID)
	if p.Abstract != "" {
		fmt.Fprintf(w, "\n%s\n", p.Abstract)
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
