package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// GlobalTopic receives an event for every task creation.
const GlobalTopic = "tasks"

// EventTypeUpdate tags every task mutation event.
const EventTypeUpdate = "update"

// TaskTopic returns the per-task topic name for the given task ID.
func TaskTopic(id uuid.UUID) string {
	return "task_" + id.String()
}

// Event is a transient task-mutation notification. It is published once
// and never persisted; subscribers that connect later do not see it.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Subscription is one subscriber's membership in a topic. Events arrive
// on C in publish order. Close leaves the topic and releases the channel.
type Subscription struct {
	topic     string
	ch        chan Event
	hub       *Hub
	closeOnce sync.Once
}

// C returns the channel on which published events are delivered.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Topic returns the topic this subscription belongs to.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close removes the subscription from its topic. Safe to call more than
// once and safe to call concurrently with Publish.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub is the topic-to-subscriber registry backing the live update
// broadcast. Publishing never blocks the caller: events are handed to
// each subscriber's buffered channel and dropped when a subscriber
// cannot keep up (at-most-once delivery).
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Subscription]struct{}
	bufferSize int
	logger     *slog.Logger
}

// NewHub creates a Hub whose subscriber channels buffer up to bufferSize
// undelivered events each.
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		topics:     make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger.With("component", "realtime_hub"),
	}
}

// Subscribe joins the given topic and returns the subscription handle.
// The caller must Close it when done to avoid stale registry entries.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan Event, h.bufferSize),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}

	h.logger.Debug("subscriber joined", "topic", topic, "subscribers", len(subs))
	return sub
}

// unsubscribe removes the subscription from the registry and closes its
// channel. Holding the write lock here excludes concurrent Publish calls,
// so no send can race with the close.
func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[sub.topic]
	if !ok {
		return
	}
	if _, member := subs[sub]; !member {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, sub.topic)
	}
	close(sub.ch)

	h.logger.Debug("subscriber left", "topic", sub.topic, "subscribers", len(subs))
}

// Publish delivers the payload to every current subscriber of the topic.
// It is fire-and-forget: the caller is never blocked and never observes
// delivery outcomes. Events to a slow subscriber are dropped.
func (h *Hub) Publish(topic string, payload json.RawMessage) {
	event := Event{
		Topic:   topic,
		Type:    EventTypeUpdate,
		Payload: payload,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber", "topic", topic)
		}
	}
}

// SubscriberCount reports how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
