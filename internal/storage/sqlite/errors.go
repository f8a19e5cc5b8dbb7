package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taskgraph/tg/internal/types"
)

// wrapDBError converts a raw database/sql error into one of the facade's
// sentinel error kinds, preserving operation context. sql.ErrNoRows becomes
// not_found; a UNIQUE constraint violation becomes duplicate_edge or
// id_collision depending on which table raised it; anything else is
// reported as storage_failure.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		switch {
		case strings.Contains(msg, "dependencies."):
			return fmt.Errorf("%s: %w", op, types.ErrDuplicateEdge)
		case strings.Contains(msg, "tasks.id"):
			return fmt.Errorf("%s: %w", op, types.ErrIDCollision)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, types.ErrStorageFailure, err)
}
