package http

import (
	"bufio"
	"time"

	"webmail_client/adapter/out/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const heartbeatInterval = 30 * time.Second

// SSEHandler streams realtime mailbox events to the browser.
type SSEHandler struct {
	hub *realtime.SSEHub
	log zerolog.Logger
}

// NewSSEHandler creates the SSE handler.
func NewSSEHandler(hub *realtime.SSEHub, log zerolog.Logger) *SSEHandler {
	return &SSEHandler{
		hub: hub,
		log: log.With().Str("handler", "sse").Logger(),
	}
}

// Register registers SSE routes.
func (h *SSEHandler) Register(app fiber.Router) {
	app.Get("/events", h.Stream)
	app.Get("/events/status", h.Status)
}

// Stream handles an SSE connection. Each tab gets its own subscription.
func (h *SSEHandler) Stream(c *fiber.Ctx) error {
	clientID := uuid.NewString()
	events := h.hub.Subscribe(clientID)

	h.log.Info().Str("client_id", clientID).Msg("SSE client connected")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // disable nginx buffering

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		defer func() {
			h.hub.Unsubscribe(clientID, events)
			h.log.Info().Str("client_id", clientID).Msg("SSE client disconnected")
		}()

		w.WriteString("event: connected\n")
		w.WriteString("data: {\"status\":\"connected\"}\n\n")
		w.Flush()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				data, err := realtime.SerializeEvent(event)
				if err != nil {
					h.log.Error().Err(err).Msg("failed to serialize event")
					continue
				}

				w.WriteString("event: ")
				w.WriteString(string(event.Type))
				w.WriteString("\n")
				w.WriteString("data: ")
				w.Write(data)
				w.WriteString("\n\n")

				if err := w.Flush(); err != nil {
					h.log.Debug().Err(err).Msg("client disconnected during write")
					return
				}

			case <-ticker.C:
				w.WriteString(": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					h.log.Debug().Err(err).Msg("client disconnected during heartbeat")
					return
				}
			}
		}
	})

	return nil
}

// Status reports hub counters.
func (h *SSEHandler) Status(c *fiber.Ctx) error {
	sent, dropped := h.hub.Stats()
	return SuccessResponse(c, fiber.Map{
		"connections": h.hub.ConnectionCount(),
		"sent":        sent,
		"dropped":     dropped,
	})
}
