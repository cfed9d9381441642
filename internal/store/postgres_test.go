// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, types.DriverPostgres, nil)
	s.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	s.newUUID = func() string { return "uuid-1" }
	return s, mock
}

func TestRebind(t *testing.T) {
	pg := New(nil, types.DriverPostgres, nil)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, types.DriverSQLite, nil)
	assert.Equal(t, "WHERE x = ?", lite.rebind("WHERE x = ?"))
}

func TestPostgresCreateProject(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)`)).
		WithArgs("uuid-1", "thesis", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := s.CreateProject(context.Background(), "thesis")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateIngestion(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE sources SET ingestion_status = $1, ingestion_error = $2, rag_doc_id = $3, updated_at = $4 WHERE id = $5`)).
		WithArgs("ready", "", "doc-9", sqlmock.AnyArg(), "src-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sources SET ingestion_status = $1`)).
		WithArgs("failed", "boom", "", sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdateIngestion(context.Background(), "src-1", types.IngestionReady, "", "doc-9"))
	err := s.UpdateIngestion(context.Background(), "gone", types.IngestionFailed, "boom", "")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearchLibraryUsesILIKE(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{
		"id", "project_id", "display_index", "paper_id", "doi", "arxiv_id", "title",
		"authors", "abstract", "publication_year", "venue", "is_open_access", "pdf_url",
		"citation_count", "reference_count", "source_api", "ingestion_status",
		"ingestion_error", "rag_doc_id", "relevance_score", "topic", "created_at", "updated_at",
	}
	rows := sqlmock.NewRows(cols).AddRow(
		"src-1", "proj-1", 1, "W1", "10.1/x", "", "Graph attention networks",
		`[{"name":"Petar Velickovic"}]`, "GAT", 2018, "ICLR", true, "https://x/pdf",
		5000, nil, "openalex", "ready",
		"", "doc-1", 0.8, "graph learning", now, now,
	)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.project_id = $1 AND (s.title ILIKE $2 OR s.abstract ILIKE $3)`)).
		WithArgs("proj-1", "%graph%attention%", "%graph%attention%", 5).
		WillReturnRows(rows)

	got, err := s.SearchLibrary(context.Background(), "proj-1", "graph attention", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	src := got[0]
	assert.Equal(t, "Graph attention networks", src.Title)
	assert.Equal(t, 2018, src.Year())
	assert.Equal(t, 5000, src.Citations())
	assert.Nil(t, src.ReferenceCount)
	assert.Equal(t, "Petar Velickovic", src.Authors[0].Name)
	assert.Equal(t, types.IngestionReady, src.IngestionStatus)
	assert.Equal(t, "graph learning", src.Topic)
	require.NoError(t, mock.ExpectationsWereMet())
}
