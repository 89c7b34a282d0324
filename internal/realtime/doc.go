// Package realtime implements the live task update broadcast: a
// topic-to-subscriber registry with non-blocking fan-out and the
// websocket handlers that expose it to connected clients.
package realtime
