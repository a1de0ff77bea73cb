package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/events"
)

// Frame is one server-sent event.
type Frame struct {
	Event string
	Data  []byte
}

// Bytes renders the frame in text/event-stream format.
func (f Frame) Bytes() []byte {
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", f.Event, f.Data))
}

// Hub fans frames out to connected dashboard streams. Slow clients drop
// frames instead of blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]chan Frame
	nextID  uint64
	buffer  int
	closed  bool
	logger  *zap.Logger
}

// NewHub creates a hub whose clients buffer up to buffer frames.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[uint64]chan Frame),
		buffer:  buffer,
		logger:  logger.With(zap.String("component", "realtime_hub")),
	}
}

// Subscribe registers a client. The returned cancel func must be called when
// the client goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Frame, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.clients[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.clients[id]; ok {
				delete(h.clients, id)
				close(c)
			}
		})
	}
}

// Broadcast delivers frame to every client with room in its buffer.
func (h *Hub) Broadcast(frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.clients {
		select {
		case ch <- frame:
		default:
			h.logger.Debug("dropping frame for slow client", zap.Uint64("client_id", id), zap.String("event", frame.Event))
		}
	}
}

// Clients returns the number of connected streams.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.clients {
		delete(h.clients, id)
		close(ch)
	}
}

// FrameOf encodes a domain event as an SSE frame.
func FrameOf(event events.Event) (Frame, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Frame{}, fmt.Errorf("encode event: %w", err)
	}
	return Frame{Event: string(event.Type), Data: data}, nil
}

// LocalForwarder broadcasts events straight to the hub. Used when Redis is
// not available and the process is the only instance.
func LocalForwarder(hub *Hub) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		frame, err := FrameOf(event)
		if err != nil {
			return err
		}
		hub.Broadcast(frame)
		return nil
	}
}
