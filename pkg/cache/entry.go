package cache

import (
	"time"
)

// Entry is a single cached read model.
type Entry struct {
	// Key is the fixed key the entry is stored under.
	Key string

	// Value is an immutable snapshot of a read model.
	Value any

	// StoredAt is when the entry was inserted.
	StoredAt time.Time
}

// IsExpired returns true if the entry's age has reached ttl at now.
// An entry exactly ttl old is already expired.
func (e *Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return !now.Before(e.StoredAt.Add(ttl))
}

// TTL returns the time left before the entry expires.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time, ttl time.Duration) time.Duration {
	left := e.StoredAt.Add(ttl).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
