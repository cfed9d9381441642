// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

const sourceColumns = `s.id, s.project_id, s.display_index, s.paper_id, s.doi, s.arxiv_id, s.title,
	s.authors, s.abstract, s.publication_year, s.venue, s.is_open_access, s.pdf_url,
	s.citation_count, s.reference_count, s.source_api, s.ingestion_status,
	s.ingestion_error, s.rag_doc_id, s.relevance_score, s.topic, s.created_at, s.updated_at`

// AddSources saves papers to a project library in one transaction. Each
// added source gets the next display index and pending ingestion status.
// A paper whose DOI (case-insensitive) is already in the library, or
// earlier in the batch, is skipped. It returns the sources actually added.
func (s *Store) AddSources(ctx context.Context, projectID string, sources []types.Source) ([]types.Source, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := s.queryRow(ctx, tx,
		`SELECT COALESCE(MAX(display_index), 0) FROM sources WHERE project_id = ?`, projectID,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("reading display index: %w", err)
	}

	known, err := s.libraryDOIs(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var added []types.Source
	for _, src := range sources {
		doi := strings.ToLower(strings.TrimSpace(src.DOI))
		if doi != "" {
			if known[doi] {
				continue
			}
			known[doi] = true
		}

		next++
		src.ID = s.newUUID()
		src.ProjectID = projectID
		src.Index = next
		src.IngestionStatus = types.IngestionPending
		src.IngestionError = ""
		src.RAGDocID = ""
		src.CreatedAt, src.UpdatedAt = now, now
		if src.Authors == nil {
			src.Authors = []types.Author{}
		}

		if _, err := s.exec(ctx, tx,
			`INSERT INTO sources (id, project_id, display_index, paper_id, doi, arxiv_id, title,
				authors, abstract, publication_year, venue, is_open_access, pdf_url,
				citation_count, reference_count, source_api, ingestion_status,
				ingestion_error, rag_doc_id, relevance_score, topic, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			src.ID, src.ProjectID, src.Index, src.PaperID, src.DOI, src.ArxivID, src.Title,
			marshalJSON(src.Authors), src.Abstract, nullInt(src.PublicationYear), src.Venue,
			src.IsOpenAccess, src.PDFURL, nullInt(src.CitationCount), nullInt(src.ReferenceCount),
			string(src.SourceAPI), string(src.IngestionStatus), src.IngestionError, src.RAGDocID,
			src.RelevanceScore, src.Topic, src.CreatedAt, src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("inserting source %q: %w", src.Title, err)
		}
		added = append(added, src)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sources: %w", err)
	}
	return added, nil
}

func (s *Store) libraryDOIs(ctx context.Context, q queryer, projectID string) (map[string]bool, error) {
	rows, err := s.query(ctx, q, `SELECT doi FROM sources WHERE project_id = ? AND doi <> ''`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing library DOIs: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var doi string
		if err := rows.Scan(&doi); err != nil {
			return nil, fmt.Errorf("scanning DOI: %w", err)
		}
		known[strings.ToLower(doi)] = true
	}
	return known, rows.Err()
}

// ListSources returns a project's library in display order.
func (s *Store) ListSources(ctx context.Context, projectID string) ([]types.Source, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+sourceColumns+` FROM sources s WHERE s.project_id = ? ORDER BY s.display_index`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	return scanSources(rows)
}

// SourceByIndex returns the library paper shown as #index.
func (s *Store) SourceByIndex(ctx context.Context, projectID string, index int) (types.Source, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+sourceColumns+` FROM sources s WHERE s.project_id = ? AND s.display_index = ?`, projectID, index)
	if err != nil {
		return types.Source{}, fmt.Errorf("loading source: %w", err)
	}
	out, err := scanSources(rows)
	if err != nil {
		return types.Source{}, err
	}
	if len(out) == 0 {
		return types.Source{}, fmt.Errorf("paper #%d: %w", index, ErrNotFound)
	}
	return out[0], nil
}

// SourcesByIndex resolves several display indices. Unknown indices are
// returned separately so callers can report them.
func (s *Store) SourcesByIndex(ctx context.Context, projectID string, indices []int) ([]types.Source, []int, error) {
	var (
		found   []types.Source
		missing []int
	)
	for _, idx := range indices {
		src, err := s.SourceByIndex(ctx, projectID, idx)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, idx)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		found = append(found, src)
	}
	return found, missing, nil
}

// GetSource returns a library source by ID.
func (s *Store) GetSource(ctx context.Context, id string) (types.Source, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+sourceColumns+` FROM sources s WHERE s.id = ?`, id)
	if err != nil {
		return types.Source{}, fmt.Errorf("loading source: %w", err)
	}
	out, err := scanSources(rows)
	if err != nil {
		return types.Source{}, err
	}
	if len(out) == 0 {
		return types.Source{}, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return out[0], nil
}

// SourcesByStatus lists a project's sources in one ingestion state.
func (s *Store) SourcesByStatus(ctx context.Context, projectID string, status types.IngestionStatus) ([]types.Source, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+sourceColumns+` FROM sources s WHERE s.project_id = ? AND s.ingestion_status = ? ORDER BY s.display_index`,
		projectID, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	return scanSources(rows)
}

// UpdateIngestion records a source's ingestion progress. errMsg and
// ragDocID overwrite the stored values.
func (s *Store) UpdateIngestion(ctx context.Context, sourceID string, status types.IngestionStatus, errMsg, ragDocID string) error {
	res, err := s.exec(ctx, s.db,
		`UPDATE sources SET ingestion_status = ?, ingestion_error = ?, rag_doc_id = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, ragDocID, s.now(), sourceID,
	)
	if err != nil {
		return fmt.Errorf("updating ingestion status: %w", err)
	}
	return expectOne(res, "source "+sourceID)
}

// SetSourceDOI fills in a DOI discovered after the paper was added.
func (s *Store) SetSourceDOI(ctx context.Context, sourceID, doi string) error {
	res, err := s.exec(ctx, s.db,
		`UPDATE sources SET doi = ?, updated_at = ? WHERE id = ? AND doi = ''`,
		doi, s.now(), sourceID,
	)
	if err != nil {
		return fmt.Errorf("updating DOI: %w", err)
	}
	_, err = res.RowsAffected()
	return err
}

// SearchLibrary matches q against library titles and abstracts. SQLite
// uses the FTS5 index ranked by bm25 when available; Postgres and SQLite
// builds without FTS5 use case-insensitive substring matching.
func (s *Store) SearchLibrary(ctx context.Context, projectID, q string, limit int) ([]types.Source, error) {
	if limit <= 0 {
		limit = 20
	}
	terms := strings.Fields(q)
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case s.fts:
		rows, err = s.query(ctx, s.db,
			`SELECT `+sourceColumns+`
			 FROM sources_fts
			 JOIN sources s ON s.rowid = sources_fts.rowid
			 WHERE sources_fts MATCH ? AND s.project_id = ?
			 ORDER BY sources_fts.rank
			 LIMIT ?`,
			ftsQuery(terms), projectID, limit)
	case s.driver == types.DriverPostgres:
		pattern := "%" + strings.Join(terms, "%") + "%"
		rows, err = s.query(ctx, s.db,
			`SELECT `+sourceColumns+`
			 FROM sources s
			 WHERE s.project_id = ? AND (s.title ILIKE ? OR s.abstract ILIKE ?)
			 ORDER BY s.display_index
			 LIMIT ?`,
			projectID, pattern, pattern, limit)
	default:
		pattern := "%" + strings.ToLower(strings.Join(terms, "%")) + "%"
		rows, err = s.query(ctx, s.db,
			`SELECT `+sourceColumns+`
			 FROM sources s
			 WHERE s.project_id = ? AND (LOWER(s.title) LIKE ? OR LOWER(s.abstract) LIKE ?)
			 ORDER BY s.display_index
			 LIMIT ?`,
			projectID, pattern, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("searching library: %w", err)
	}
	return scanSources(rows)
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func scanSources(rows *sql.Rows) ([]types.Source, error) {
	defer rows.Close()

	var out []types.Source
	for rows.Next() {
		var (
			src                   types.Source
			authors, api, status  string
			year, cites, refCount sql.NullInt64
		)
		if err := rows.Scan(
			&src.ID, &src.ProjectID, &src.Index, &src.PaperID, &src.DOI, &src.ArxivID, &src.Title,
			&authors, &src.Abstract, &year, &src.Venue, &src.IsOpenAccess, &src.PDFURL,
			&cites, &refCount, &api, &status,
			&src.IngestionError, &src.RAGDocID, &src.RelevanceScore, &src.Topic, &src.CreatedAt, &src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &src.Authors); err != nil {
			return nil, fmt.Errorf("decoding authors of %s: %w", src.ID, err)
		}
		src.PublicationYear = intPtr(year)
		src.CitationCount = intPtr(cites)
		src.ReferenceCount = intPtr(refCount)
		src.SourceAPI = types.SourceTag(api)
		src.IngestionStatus = types.IngestionStatus(status)
		out = append(out, src)
	}
	return out, rows.Err()
}
