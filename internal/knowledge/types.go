// Package knowledge provides the PostgreSQL-backed store for a user's
// knowledge entries.
//
// Every operation is scoped to an owner id: an entry is only ever visible
// to the user who created it, and lookups for another user's entry report
// not-found rather than forbidden so the existence of other users' data
// never leaks.
package knowledge

import (
	"errors"
	"time"
)

// DefaultSearchLimit caps keyword search results. Small on purpose: search
// results are fed verbatim to the assistant, so the set must stay cheap to
// serialize.
const DefaultSearchLimit = 5

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrEntryNotFound indicates the entry does not exist or belongs to a
	// different owner. The two cases are deliberately indistinguishable.
	ErrEntryNotFound = errors.New("entry not found")
)

// Entry is one knowledge-base record.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
