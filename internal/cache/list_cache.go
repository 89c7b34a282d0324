package cache

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tratoli/task-api/internal/store"
)

// ListCache memoizes filtered, paginated task list results per user and
// query parameter set. Entries expire after a fixed TTL; consistency after
// writes is bounded by that TTL rather than explicit invalidation, so a
// read is never staler than the TTL relative to any mutation.
type ListCache struct {
	lru *expirable.LRU[string, *store.TaskPage]
	ttl time.Duration
}

// NewListCache creates a ListCache holding at most size entries, each
// valid for ttl after insertion.
func NewListCache(size int, ttl time.Duration) *ListCache {
	return &ListCache{
		lru: expirable.NewLRU[string, *store.TaskPage](size, nil, ttl),
		ttl: ttl,
	}
}

// Key derives the cache key for a user's list query. Parameters are
// encoded in sorted order so equivalent queries produce the same key
// regardless of the order they were supplied in.
func Key(userID uuid.UUID, params url.Values) string {
	// url.Values.Encode sorts by key, giving a canonical encoding.
	return fmt.Sprintf("tasks_list:%s:%s", userID, params.Encode())
}

// Get returns the cached page for the key, or false if the entry is
// absent or expired. Expired entries are never returned.
func (c *ListCache) Get(key string) (*store.TaskPage, bool) {
	return c.lru.Get(key)
}

// Put stores a page under the key with the configured TTL. An existing
// entry for the same key is superseded, never partially updated.
func (c *ListCache) Put(key string, page *store.TaskPage) {
	c.lru.Add(key, page)
}

// Purge drops every cached entry.
func (c *ListCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *ListCache) Len() int {
	return c.lru.Len()
}

// TTL returns the configured entry lifetime.
func (c *ListCache) TTL() time.Duration {
	return c.ttl
}
