// Package realtime pushes state-change events to connected UI clients over
// Server-Sent Events.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"webmail_client/core/domain"
	"webmail_client/core/port/out"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// SSEHub implements out.RealtimePort. One session, many tabs: each connected
// tab gets its own buffered channel; full buffers drop events rather than
// block the producer.
type SSEHub struct {
	clients map[string]chan *domain.RealtimeEvent // clientID -> channel
	mu      sync.RWMutex
	log     zerolog.Logger

	messagesSent    int64
	messagesDropped int64
	seqCounter      int64
}

// NewSSEHub creates a new hub.
func NewSSEHub(log zerolog.Logger) *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan *domain.RealtimeEvent),
		log:     log.With().Str("component", "sse_hub").Logger(),
	}
}

// Subscribe registers a client and returns its event channel.
func (h *SSEHub) Subscribe(clientID string) <-chan *domain.RealtimeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *domain.RealtimeEvent, 256)
	h.clients[clientID] = ch

	h.log.Debug().
		Str("client_id", clientID).
		Int("total_connections", len(h.clients)).
		Msg("client subscribed")

	return ch
}

// Unsubscribe removes a client channel and closes it.
func (h *SSEHub) Unsubscribe(clientID string, ch <-chan *domain.RealtimeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok && c == ch {
		delete(h.clients, clientID)
		close(c)
	}

	h.log.Debug().Str("client_id", clientID).Msg("client unsubscribed")
}

// Broadcast sends an event to every connected client. Seq is assigned
// atomically so clients can detect ordering and gaps.
func (h *SSEHub) Broadcast(ctx context.Context, event *domain.RealtimeEvent) error {
	event.Seq = atomic.AddInt64(&h.seqCounter, 1)

	h.mu.RLock()
	channels := make([]chan *domain.RealtimeEvent, 0, len(h.clients))
	for _, ch := range h.clients {
		channels = append(channels, ch)
	}
	h.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- event:
			atomic.AddInt64(&h.messagesSent, 1)
		default:
			atomic.AddInt64(&h.messagesDropped, 1)
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Int64("seq", event.Seq).
				Msg("dropped event due to full buffer")
		}
	}
	return nil
}

// ConnectionCount returns the number of connected clients.
func (h *SSEHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns sent/dropped counters.
func (h *SSEHub) Stats() (sent, dropped int64) {
	return atomic.LoadInt64(&h.messagesSent), atomic.LoadInt64(&h.messagesDropped)
}

// SerializeEvent encodes an event payload for the wire.
func SerializeEvent(event *domain.RealtimeEvent) ([]byte, error) {
	return json.Marshal(event)
}

var _ out.RealtimePort = (*SSEHub)(nil)
