// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

func newID() string { return uuid.NewString() }

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, name string) (types.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Project{}, errors.New("project name is empty")
	}
	p := types.Project{ID: s.newUUID(), Name: name, CreatedAt: s.now()}
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.CreatedAt,
	); err != nil {
		return types.Project{}, fmt.Errorf("inserting project: %w", err)
	}
	return p, nil
}

// GetProject returns the project with id.
func (s *Store) GetProject(ctx context.Context, id string) (types.Project, error) {
	var p types.Project
	err := s.queryRow(ctx, s.db,
		`SELECT id, name, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("loading project: %w", err)
	}
	return p, nil
}

// ProjectByName returns the most recently created project named name.
func (s *Store) ProjectByName(ctx context.Context, name string) (types.Project, error) {
	var p types.Project
	err := s.queryRow(ctx, s.db,
		`SELECT id, name, created_at FROM projects WHERE name = ? ORDER BY created_at DESC LIMIT 1`, name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("loading project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, name, created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateSession starts a research session on topic.
func (s *Store) CreateSession(ctx context.Context, projectID, topic string) (types.ResearchSession, error) {
	now := s.now()
	rs := types.ResearchSession{
		ID:        s.newUUID(),
		ProjectID: projectID,
		Topic:     topic,
		Status:    types.SessionExploring,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO research_sessions (id, project_id, topic, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rs.ID, rs.ProjectID, rs.Topic, string(rs.Status), rs.CreatedAt, rs.UpdatedAt,
	); err != nil {
		return types.ResearchSession{}, fmt.Errorf("inserting session: %w", err)
	}
	return rs, nil
}

// LatestSession returns the project's most recent session, or ErrNotFound.
func (s *Store) LatestSession(ctx context.Context, projectID string) (types.ResearchSession, error) {
	var (
		rs     types.ResearchSession
		status string
	)
	err := s.queryRow(ctx, s.db,
		`SELECT id, project_id, topic, status, created_at, updated_at
		 FROM research_sessions WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, projectID,
	).Scan(&rs.ID, &rs.ProjectID, &rs.Topic, &status, &rs.CreatedAt, &rs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResearchSession{}, fmt.Errorf("session for project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return types.ResearchSession{}, fmt.Errorf("loading session: %w", err)
	}
	rs.Status = types.SessionStatus(status)
	return rs, nil
}

// UpdateSessionStatus moves a session to status.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status types.SessionStatus) error {
	res, err := s.exec(ctx, s.db,
		`UPDATE research_sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.now(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return expectOne(res, "session "+sessionID)
}

// LogExploration records one research action in the session history.
func (s *Store) LogExploration(ctx context.Context, log types.ExplorationLog) (types.ExplorationLog, error) {
	log.ID = s.newUUID()
	log.CreatedAt = s.now()
	if log.Details == nil {
		log.Details = map[string]any{}
	}
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO exploration_logs (id, session_id, action_type, trigger_text, description, details, sources_added, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.SessionID, string(log.ActionType), log.Trigger, log.Description,
		marshalJSON(log.Details), log.SourcesAdded, log.CreatedAt,
	); err != nil {
		return types.ExplorationLog{}, fmt.Errorf("inserting exploration log: %w", err)
	}
	return log, nil
}

// ExplorationHistory returns a session's logged actions, oldest first.
func (s *Store) ExplorationHistory(ctx context.Context, sessionID string) ([]types.ExplorationLog, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT id, session_id, action_type, trigger_text, description, details, sources_added, created_at
		 FROM exploration_logs WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing exploration logs: %w", err)
	}
	defer rows.Close()

	var out []types.ExplorationLog
	for rows.Next() {
		var (
			l       types.ExplorationLog
			action  string
			details string
		)
		if err := rows.Scan(&l.ID, &l.SessionID, &action, &l.Trigger, &l.Description, &details, &l.SourcesAdded, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exploration log: %w", err)
		}
		l.ActionType = types.IntentType(action)
		l.Details = decodeMap(details)
		out = append(out, l)
	}
	return out, rows.Err()
}
