package cache

import (
	"time"
)

// Entry is one cached value owned by a single Store.
// Entries are never updated in place; a re-fetch replaces the whole entry.
type Entry[V any] struct {
	// Key is the store key the entry was written under
	Key string `json:"key"`

	// Value is the cached payload
	Value V `json:"value"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is when the entry becomes a miss. Always after StoredAt.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the entry is no longer servable at now.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry[V]) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
