// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// Deduplicate collapses records that share a DOI (case-insensitive) into the
// most complete one. Records without a DOI are always kept. When two records
// share a DOI the later one replaces the kept one in place only if its
// quality score is strictly higher, so output order follows first
// occurrence. It returns the kept records and the number removed.
func Deduplicate(papers []types.PaperRecord) ([]types.PaperRecord, int) {
	seen := make(map[string]int) // lower-cased DOI -> index in kept
	kept := make([]types.PaperRecord, 0, len(papers))
	removed := 0

	for _, p := range papers {
		key := strings.ToLower(strings.TrimSpace(p.DOI))
		if key == "" {
			kept = append(kept, p)
			continue
		}
		if idx, ok := seen[key]; ok {
			removed++
			if QualityScore(p) > QualityScore(kept[idx]) {
				kept[idx] = p
			}
			continue
		}
		seen[key] = len(kept)
		kept = append(kept, p)
	}
	return kept, removed
}

// QualityScore rates how complete a record is. Abstracts weigh 3, authors
// and a PDF link 2 each, and citation count, year and venue 1 each.
func QualityScore(p types.PaperRecord) int {
	score := 0
	if p.Abstract != "" {
		score += 3
	}
	if len(p.Authors) > 0 {
		score += 2
	}
	if p.PDFURL != "" {
		score += 2
	}
	if p.CitationCount != nil {
		score++
	}
	if p.PublicationYear != nil {
		score++
	}
	if p.Venue != "" {
		score++
	}
	return score
}
