//go:build cgo

package dolt

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taskgraph/tg/internal/types"
)

// wrapDBError mirrors the sqlite backend's wrapDBError (internal/storage/
// sqlite/errors.go), adapted to the error text the embedded Dolt/MySQL
// driver actually raises: a duplicate-key error reads "Duplicate entry
// ... for key ..." rather than SQLite's "UNIQUE constraint failed".
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	msg := err.Error()
	if strings.Contains(msg, "Duplicate entry") {
		switch {
		case strings.Contains(msg, "dependencies"):
			return fmt.Errorf("%s: %w", op, types.ErrDuplicateEdge)
		case strings.Contains(msg, "tasks") || strings.Contains(msg, "PRIMARY"):
			return fmt.Errorf("%s: %w", op, types.ErrIDCollision)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, types.ErrStorageFailure, err)
}
