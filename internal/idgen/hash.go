// Package idgen derives task ids deterministically from task content so
// that two processes creating "the same" task independently converge on
// the same id, and so a task's id can be recomputed for verification
// without a lookup table.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDLength is the fixed length of a task id: 8 lowercase hex characters,
// i.e. 4 bytes of hash output.
const IDLength = 8

// GenerateTaskID derives an 8-character lowercase hex id from a task's
// title and creation time. The nonce lets a caller retry after a
// collision (spec §3: "Uniqueness enforced at creation — collision fails
// the call") by perturbing the hash input without changing title or
// timestamp semantics.
func GenerateTaskID(title string, createdAtSeconds int64, nonce int) string {
	content := fmt.Sprintf("%s|%d|%d", title, createdAtSeconds, nonce)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:4])
}

// ValidID reports whether s has the shape of a task id: exactly IDLength
// lowercase hex characters.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}
