package handlers

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/realtime"
)

const sseKeepaliveInterval = 30 * time.Second

// EventsHandler streams ticket events to the admin dashboard.
type EventsHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewEventsHandler constructs handler.
func NewEventsHandler(hub *realtime.Hub, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{hub: hub, logger: logger}
}

// Stream GET /api/events.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	frames, cancel := h.hub.Subscribe()
	logger := h.logger

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		if _, err := w.WriteString(": connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		keepalive := time.NewTicker(sseKeepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case frame, ok := <-frames:
				if !ok {
					return
				}
				if _, err := w.Write(frame.Bytes()); err != nil {
					return
				}
			case <-keepalive.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	})
	return nil
}
