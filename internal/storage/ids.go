package storage

import "github.com/google/uuid"

// newID generates a prefixed opaque id, e.g. "scenario-<uuid>", matching
// the id shapes spec.md §6 requires ("session-", "scenario-", "flow-",
// "result-", "flowresult-", "exec-").
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
