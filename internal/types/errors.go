package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the operation-level failure kinds of spec §7. Every
// facade and store method that can fail returns (or wraps) one of these so
// callers can branch with errors.Is instead of string matching.
var (
	ErrNotFound               = errors.New("not_found")
	ErrIDCollision            = errors.New("id_collision")
	ErrSelfDependency         = errors.New("self_dependency")
	ErrDuplicateEdge          = errors.New("duplicate_edge")
	ErrCircularDependency     = errors.New("circular_dependency")
	ErrCannotBlockContainer   = errors.New("cannot_block_container")
	ErrCannotChangeEphemeral  = errors.New("cannot_change_ephemeral")
	ErrCannotUpdateEphemeral  = errors.New("cannot_update_ephemeral")
	ErrCannotReopenCompleted  = errors.New("cannot_reopen_completed")
	ErrInvalidID              = errors.New("invalid_id")
	ErrReferentialIntegrity   = errors.New("referential_integrity")
	ErrStorageFailure         = errors.New("storage_failure")
	ErrTransactionRollback    = errors.New("transaction_rollback_failure")
)

// NotFound builds a not_found error naming the missing id.
func NotFound(op, id string) error {
	return fmt.Errorf("%s: task %q: %w", op, id, ErrNotFound)
}

// IDCollision builds an id_collision error for a freshly generated id.
func IDCollision(id string) error {
	return fmt.Errorf("id %q already exists: %w", id, ErrIDCollision)
}

// InvalidID builds an invalid_id error for a malformed id string (wrong
// length or non-hex characters), distinct from not_found which means a
// well-formed id that simply isn't in the store.
func InvalidID(id string) error {
	return fmt.Errorf("malformed task id %q: %w", id, ErrInvalidID)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCircular reports whether err is or wraps ErrCircularDependency.
func IsCircular(err error) bool { return errors.Is(err, ErrCircularDependency) }

// IsInvalidID reports whether err is or wraps ErrInvalidID.
func IsInvalidID(err error) bool { return errors.Is(err, ErrInvalidID) }
