// Package notify implements the outbound notification pipeline: a bounded
// dispatch queue consumed by worker goroutines with per-job retry, and the
// scheduled scanner that raises due-date reminders.
package notify
