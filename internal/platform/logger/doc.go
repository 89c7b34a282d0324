// Package logger provides structured logging setup and context helpers
// for propagating request-scoped loggers.
package logger
