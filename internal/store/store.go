// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists projects, their paper libraries, chat history,
// research sessions and outlines in a relational database. SQLite
// (mattn/go-sqlite3) is the default backend; Postgres is reached through
// the pgx database/sql driver. Queries are written once with "?"
// placeholders and rebound for Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// DefaultDSN is the SQLite database file used when none is configured.
const DefaultDSN = "research-tool.db"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the repository over one database handle. It is safe for
// concurrent use.
type Store struct {
	db      *sql.DB
	driver  types.StoreDriver
	fts     bool
	now     func() time.Time
	logger  *zap.Logger
	newUUID func() string
}

// Open connects to the configured database and creates the schema if it
// does not exist.
func Open(ctx context.Context, cfg types.StoreConfig, logger *zap.Logger) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = types.DriverSQLite
	}
	dsn := cfg.DSN

	switch driver {
	case types.DriverSQLite:
		if dsn == "" {
			dsn = DefaultDSN
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
		}
	case types.DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres store requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == types.DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent ingestion.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	s := New(db, driver, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// New wraps an open database handle without touching the schema.
func New(db *sql.DB, driver types.StoreDriver, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:      db,
		driver:  driver,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		logger:  logger.Named("store"),
		newUUID: newID,
	}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver reports the backend in use.
func (s *Store) Driver() types.StoreDriver { return s.driver }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates tables and indexes that do not exist yet. On SQLite it
// also builds the FTS5 library index when the driver was compiled with
// FTS5; otherwise library search falls back to LIKE matching.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	if s.driver != types.DriverSQLite {
		return nil
	}

	var ftsExists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sources_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range ftsSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			s.logger.Warn("full-text index unavailable, library search uses LIKE", zap.Error(err))
			return nil
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("creating FTS infrastructure: %w", err)
	}
	s.fts = true
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS research_sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		topic TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_project ON research_sessions(project_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		display_index INTEGER NOT NULL,
		paper_id TEXT NOT NULL,
		doi TEXT NOT NULL DEFAULT '',
		arxiv_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		authors TEXT NOT NULL,
		abstract TEXT NOT NULL DEFAULT '',
		publication_year INTEGER,
		venue TEXT NOT NULL DEFAULT '',
		is_open_access BOOLEAN NOT NULL DEFAULT FALSE,
		pdf_url TEXT NOT NULL DEFAULT '',
		citation_count INTEGER,
		reference_count INTEGER,
		source_api TEXT NOT NULL,
		ingestion_status TEXT NOT NULL,
		ingestion_error TEXT NOT NULL DEFAULT '',
		rag_doc_id TEXT NOT NULL DEFAULT '',
		relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		topic TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (project_id, display_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sources_doi ON sources(project_id, doi)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_project ON chat_messages(project_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS outline_sections (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		section_type TEXT NOT NULL,
		order_index INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outline_claims (
		id TEXT PRIMARY KEY,
		section_id TEXT NOT NULL REFERENCES outline_sections(id) ON DELETE CASCADE,
		claim_text TEXT NOT NULL,
		order_index INTEGER NOT NULL,
		status TEXT NOT NULL,
		supporting_sources TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exploration_logs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES research_sessions(id) ON DELETE CASCADE,
		action_type TEXT NOT NULL,
		trigger_text TEXT NOT NULL,
		description TEXT NOT NULL,
		details TEXT NOT NULL,
		sources_added INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
}

// ftsSchema keeps an external-content FTS5 index over library titles and
// abstracts in sync through triggers.
var ftsSchema = []string{
	`CREATE VIRTUAL TABLE sources_fts USING fts5(title, abstract, content=sources, content_rowid=rowid)`,
	`CREATE TRIGGER sources_ai AFTER INSERT ON sources BEGIN
		INSERT INTO sources_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
	END`,
	`CREATE TRIGGER sources_ad AFTER DELETE ON sources BEGIN
		INSERT INTO sources_fts(sources_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
	END`,
	`CREATE TRIGGER sources_au AFTER UPDATE OF title, abstract ON sources BEGIN
		INSERT INTO sources_fts(sources_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
		INSERT INTO sources_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
	END`,
}

// rebind rewrites "?" placeholders as "$1", "$2", ... for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != types.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// expectOne turns a zero-row update into ErrNotFound.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s update: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return types.Int(int(n.Int64))
}
