//go:build cgo

package dolt

import (
	"context"
	"database/sql"

	"github.com/taskgraph/tg/internal/types"
)

func (co *core) SaveSessionState(ctx context.Context, s *types.SessionState) error {
	_, err := co.c.ExecContext(ctx, `
		INSERT INTO session_state (id, session_id, started_at, current_task_id, notes)
		VALUES (1, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			session_id = VALUES(session_id),
			started_at = VALUES(started_at),
			current_task_id = VALUES(current_task_id),
			notes = VALUES(notes)
	`, s.SessionID, s.StartedAt, s.CurrentTaskID, s.Notes)
	return wrapDBError("save_session_state", err)
}

func (co *core) LoadSessionState(ctx context.Context) (*types.SessionState, error) {
	var s types.SessionState
	var currentTaskID, notes sql.NullString
	err := co.c.QueryRowContext(ctx, `
		SELECT session_id, started_at, current_task_id, notes FROM session_state WHERE id = 1
	`).Scan(&s.SessionID, &s.StartedAt, &currentTaskID, &notes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapDBError("load_session_state", err)
	}
	if currentTaskID.Valid {
		s.CurrentTaskID = &currentTaskID.String
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	return &s, nil
}
