package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// envelope is the wire format for both directions: inbound client
// messages and outbound server pushes carry {"message": <payload>}.
type envelope struct {
	Message json.RawMessage `json:"message"`
}

// WSHandler bridges websocket connections to hub topics.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a WSHandler serving connections from the given hub.
func NewWSHandler(hub *Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "ws_handler"),
	}
}

// ServeGlobal handles connections to the global topic, which receives
// every task-creation event.
func (h *WSHandler) ServeGlobal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, GlobalTopic)
}

// ServeTask handles connections to a per-task topic, which receives
// update events scoped to that task.
func (h *WSHandler) ServeTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	h.serve(w, r, TaskTopic(id))
}

// serve upgrades the connection, joins the topic and runs the read and
// write pumps until the client disconnects. The subscription is removed
// from the topic as soon as either pump exits.
func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "topic", topic, "error", err)
		return
	}

	sub := h.hub.Subscribe(topic)
	echo := make(chan json.RawMessage, 8)
	done := make(chan struct{})

	defer func() {
		sub.Close()
		close(done)
		if err := conn.Close(); err != nil {
			h.logger.Debug("websocket close failed", "topic", topic, "error", err)
		}
	}()

	// Single writer goroutine: gorilla connections do not support
	// concurrent writers, so published events and echoes funnel here.
	go h.writePump(conn, sub, echo, done)

	h.readPump(conn, echo)
}

// readPump consumes inbound client messages and forwards their payloads
// to the writer for echoing back unmodified.
func (h *WSHandler) readPump(conn *websocket.Conn, echo chan<- json.RawMessage) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var in envelope
		if err := json.Unmarshal(data, &in); err != nil {
			h.logger.Debug("dropping malformed client message", "error", err)
			continue
		}

		select {
		case echo <- in.Message:
		default:
			h.logger.Warn("dropping echo for slow connection")
		}
	}
}

// writePump forwards published events and echoed client messages to the
// connection until the subscription is closed or the client disconnects.
func (h *WSHandler) writePump(conn *websocket.Conn, sub *Subscription, echo <-chan json.RawMessage, done <-chan struct{}) {
	for {
		select {
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if err := conn.WriteJSON(envelope{Message: event.Payload}); err != nil {
				return
			}
		case msg := <-echo:
			if err := conn.WriteJSON(envelope{Message: msg}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
