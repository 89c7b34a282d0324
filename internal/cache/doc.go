// Package cache provides the TTL-bounded memoization layer for task list
// queries. Results are keyed by user identity plus the canonical encoding
// of the query parameters.
package cache
