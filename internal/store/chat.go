// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// AppendMessage persists one chat turn for a project.
func (s *Store) AppendMessage(ctx context.Context, projectID string, msg types.ChatMessage) (types.ChatMessage, error) {
	msg.ID = s.newUUID()
	msg.CreatedAt = s.now()
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO chat_messages (id, project_id, session_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, projectID, msg.SessionID, string(msg.Role), msg.Content, marshalJSON(msg.Metadata), msg.CreatedAt,
	); err != nil {
		return types.ChatMessage{}, fmt.Errorf("inserting chat message: %w", err)
	}
	return msg, nil
}

// History returns the last limit messages of a project, oldest first.
// A non-positive limit returns the whole history.
func (s *Store) History(ctx context.Context, projectID string, limit int) ([]types.ChatMessage, error) {
	query := `SELECT id, session_id, role, content, metadata, created_at
		 FROM chat_messages WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing chat history: %w", err)
	}
	defer rows.Close()

	var out []types.ChatMessage
	for rows.Next() {
		var (
			m        types.ChatMessage
			role     string
			metadata string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		m.Role = types.ChatRole(role)
		m.Metadata = decodeMap(metadata)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// decodeMap reads a JSON object column. Malformed values decode as empty.
func decodeMap(raw string) map[string]any {
	m := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}
