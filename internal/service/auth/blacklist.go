package auth

import (
	"sync"
	"time"
)

// Blacklist records revoked refresh token IDs until their natural expiry.
// Entries self-clean lazily: expired entries are dropped on access, so
// the set never outgrows the volume of live revoked tokens.
type Blacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time // token ID -> token expiry
}

// NewBlacklist creates an empty Blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{entries: make(map[string]time.Time)}
}

// Add revokes the token ID until the given expiry.
func (b *Blacklist) Add(tokenID string, expiresAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	b.entries[tokenID] = expiresAt
}

// Contains reports whether the token ID is currently revoked.
func (b *Blacklist) Contains(tokenID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.entries[tokenID]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(b.entries, tokenID)
		return false
	}
	return true
}

// sweepLocked drops entries whose tokens have expired anyway.
// Callers must hold the mutex.
func (b *Blacklist) sweepLocked() {
	now := time.Now()
	for id, expiry := range b.entries {
		if now.After(expiry) {
			delete(b.entries, id)
		}
	}
}
