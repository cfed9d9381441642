// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// CreateSection appends a section to the end of a project's outline.
func (s *Store) CreateSection(ctx context.Context, projectID, title string, kind types.SectionType) (types.OutlineSection, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.OutlineSection{}, errors.New("section title is empty")
	}

	var last int
	if err := s.queryRow(ctx, s.db,
		`SELECT COALESCE(MAX(order_index), 0) FROM outline_sections WHERE project_id = ?`, projectID,
	).Scan(&last); err != nil {
		return types.OutlineSection{}, fmt.Errorf("reading section order: %w", err)
	}

	sec := types.OutlineSection{
		ID:          s.newUUID(),
		ProjectID:   projectID,
		Title:       title,
		SectionType: kind,
		OrderIndex:  last + 1,
		Claims:      []types.OutlineClaim{},
	}
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO outline_sections (id, project_id, title, section_type, order_index) VALUES (?, ?, ?, ?, ?)`,
		sec.ID, sec.ProjectID, sec.Title, string(sec.SectionType), sec.OrderIndex,
	); err != nil {
		return types.OutlineSection{}, fmt.Errorf("inserting section: %w", err)
	}
	return sec, nil
}

// ListOutline returns a project's sections in order, each with its claims.
func (s *Store) ListOutline(ctx context.Context, projectID string) ([]types.OutlineSection, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT id, project_id, title, section_type, order_index
		 FROM outline_sections WHERE project_id = ? ORDER BY order_index`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	var (
		sections []types.OutlineSection
		byID     = map[string]int{}
	)
	for rows.Next() {
		var (
			sec  types.OutlineSection
			kind string
		)
		if err := rows.Scan(&sec.ID, &sec.ProjectID, &sec.Title, &kind, &sec.OrderIndex); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sec.SectionType = types.SectionType(kind)
		sec.Claims = []types.OutlineClaim{}
		byID[sec.ID] = len(sections)
		sections = append(sections, sec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, nil
	}

	claimRows, err := s.query(ctx, s.db,
		`SELECT c.id, c.section_id, c.claim_text, c.order_index, c.status, c.supporting_sources
		 FROM outline_claims c
		 JOIN outline_sections sec ON sec.id = c.section_id
		 WHERE sec.project_id = ?
		 ORDER BY sec.order_index, c.order_index`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	claims, err := scanClaims(claimRows)
	if err != nil {
		return nil, err
	}
	for _, c := range claims {
		if i, ok := byID[c.SectionID]; ok {
			sections[i].Claims = append(sections[i].Claims, c)
		}
	}
	return sections, nil
}

// SectionByRef finds a section by 1-based position or by a
// case-insensitive title match. A title reference matches the first
// section whose title contains it.
func (s *Store) SectionByRef(ctx context.Context, projectID, ref string) (types.OutlineSection, error) {
	sections, err := s.ListOutline(ctx, projectID)
	if err != nil {
		return types.OutlineSection{}, err
	}
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return types.OutlineSection{}, fmt.Errorf("empty section reference: %w", ErrNotFound)
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(sections) {
			return sections[n-1], nil
		}
		return types.OutlineSection{}, fmt.Errorf("section %d: %w", n, ErrNotFound)
	}
	for _, sec := range sections {
		if strings.Contains(strings.ToLower(sec.Title), ref) {
			return sec, nil
		}
	}
	return types.OutlineSection{}, fmt.Errorf("section %q: %w", ref, ErrNotFound)
}

// RenameSection changes a section title.
func (s *Store) RenameSection(ctx context.Context, sectionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("section title is empty")
	}
	res, err := s.exec(ctx, s.db, `UPDATE outline_sections SET title = ? WHERE id = ?`, title, sectionID)
	if err != nil {
		return fmt.Errorf("renaming section: %w", err)
	}
	return expectOne(res, "section "+sectionID)
}

// CreateClaim appends a draft claim to a section.
func (s *Store) CreateClaim(ctx context.Context, sectionID, text string, sourceIDs []string) (types.OutlineClaim, error) {
	var last int
	if err := s.queryRow(ctx, s.db,
		`SELECT COALESCE(MAX(order_index), 0) FROM outline_claims WHERE section_id = ?`, sectionID,
	).Scan(&last); err != nil {
		return types.OutlineClaim{}, fmt.Errorf("reading claim order: %w", err)
	}
	if sourceIDs == nil {
		sourceIDs = []string{}
	}

	c := types.OutlineClaim{
		ID:                s.newUUID(),
		SectionID:         sectionID,
		ClaimText:         text,
		OrderIndex:        last + 1,
		Status:            types.ClaimDraft,
		SupportingSources: sourceIDs,
	}
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO outline_claims (id, section_id, claim_text, order_index, status, supporting_sources)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SectionID, c.ClaimText, c.OrderIndex, string(c.Status), marshalJSON(c.SupportingSources),
	); err != nil {
		return types.OutlineClaim{}, fmt.Errorf("inserting claim: %w", err)
	}
	return c, nil
}

// LinkClaimSources adds source IDs to a claim's supporting sources,
// keeping existing links and their order. It returns the merged list.
func (s *Store) LinkClaimSources(ctx context.Context, claimID string, sourceIDs []string) ([]string, error) {
	var raw string
	err := s.queryRow(ctx, s.db, `SELECT supporting_sources FROM outline_claims WHERE id = ?`, claimID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", claimID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}

	merged := decodeStrings(raw)
	seen := make(map[string]bool, len(merged))
	for _, id := range merged {
		seen[id] = true
	}
	for _, id := range sourceIDs {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}

	if _, err := s.exec(ctx, s.db,
		`UPDATE outline_claims SET supporting_sources = ? WHERE id = ?`, marshalJSON(merged), claimID,
	); err != nil {
		return nil, fmt.Errorf("linking sources: %w", err)
	}
	return merged, nil
}

// UnsupportedClaim is a claim with no supporting source and the title of
// its section.
type UnsupportedClaim struct {
	types.OutlineClaim
	SectionTitle string `json:"section_title"`
}

// UnsupportedClaims lists the project's claims that cite no source, in
// outline order.
func (s *Store) UnsupportedClaims(ctx context.Context, projectID string) ([]UnsupportedClaim, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT c.id, c.section_id, c.claim_text, c.order_index, c.status, c.supporting_sources, sec.title
		 FROM outline_claims c
		 JOIN outline_sections sec ON sec.id = c.section_id
		 WHERE sec.project_id = ? AND c.supporting_sources = '[]'
		 ORDER BY sec.order_index, c.order_index`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing unsupported claims: %w", err)
	}
	defer rows.Close()

	var out []UnsupportedClaim
	for rows.Next() {
		var (
			u       UnsupportedClaim
			status  string
			sources string
		)
		if err := rows.Scan(&u.ID, &u.SectionID, &u.ClaimText, &u.OrderIndex, &status, &sources, &u.SectionTitle); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		u.Status = types.ClaimStatus(status)
		u.SupportingSources = decodeStrings(sources)
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanClaims(rows *sql.Rows) ([]types.OutlineClaim, error) {
	defer rows.Close()

	var out []types.OutlineClaim
	for rows.Next() {
		var (
			c       types.OutlineClaim
			status  string
			sources string
		)
		if err := rows.Scan(&c.ID, &c.SectionID, &c.ClaimText, &c.OrderIndex, &status, &sources); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		c.Status = types.ClaimStatus(status)
		c.SupportingSources = decodeStrings(sources)
		out = append(out, c)
	}
	return out, rows.Err()
}

func decodeStrings(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
