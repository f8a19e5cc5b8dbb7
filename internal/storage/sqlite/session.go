package sqlite

import (
	"context"
	"database/sql"

	"github.com/taskgraph/tg/internal/types"
)

// SaveSessionState persists the single current session row (spec §5):
// session id, start time, the in-progress current_task_id, and free-form
// notes. There is only ever one row; callers decide when a new session id
// supersedes the previous one.
func (co *core) SaveSessionState(ctx context.Context, s *types.SessionState) error {
	_, err := co.c.ExecContext(ctx, `
		INSERT INTO session_state (id, session_id, started_at, current_task_id, notes)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			started_at = excluded.started_at,
			current_task_id = excluded.current_task_id,
			notes = excluded.notes
	`, s.SessionID, s.StartedAt, s.CurrentTaskID, s.Notes)
	return wrapDBError("save_session_state", err)
}

// LoadSessionState returns the persisted session row, or nil if no
// session has ever been started (spec §5 cold-start case).
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
