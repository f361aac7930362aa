package out

import (
	"context"

	"webmail_client/core/domain"
)

// RealtimePort pushes state-change events to connected UI clients.
type RealtimePort interface {
	// Subscribe registers a client (a browser tab) and returns its event
	// channel.
	Subscribe(clientID string) <-chan *domain.RealtimeEvent
	// Unsubscribe removes a client channel and closes it.
	Unsubscribe(clientID string, ch <-chan *domain.RealtimeEvent)
	// Broadcast sends an event to every connected client. Events are
	// dropped, not blocked on, when a client's buffer is full.
	Broadcast(ctx context.Context, event *domain.RealtimeEvent) error
}
