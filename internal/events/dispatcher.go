package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDispatcherClosed is returned by Publish after Close.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	// Publish hands the event to every matching subscriber and returns
	// without waiting for them.
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler)
	// Close stops accepting events and waits for in-flight handlers.
	Close()
}

// inMemoryDispatcher runs each handler on its own goroutine with a context
// detached from the publisher and bounded by timeout.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	wildcard  []EventHandler
	closed    bool

	inflight sync.WaitGroup
	timeout  time.Duration
	logger   *zap.Logger
	onEvent  func(EventType)
}

// Option customises the dispatcher.
type Option func(*inMemoryDispatcher)

// WithHandlerTimeout bounds each handler invocation.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *inMemoryDispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithObserver is called once per published event, e.g. to count it.
func WithObserver(fn func(EventType)) Option {
	return func(d *inMemoryDispatcher) { d.onEvent = fn }
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher(logger *zap.Logger, opts ...Option) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		timeout:   10 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed
	}
	handlers := make([]EventHandler, 0, len(d.listeners[event.Type])+len(d.wildcard))
	handlers = append(handlers, d.listeners[event.Type]...)
	handlers = append(handlers, d.wildcard...)
	d.inflight.Add(len(handlers))
	d.mu.RUnlock()

	if d.onEvent != nil {
		d.onEvent(event.Type)
	}

	base := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go d.run(base, handler, event)
	}
	return nil
}

func (d *inMemoryDispatcher) run(base context.Context, handler EventHandler, event Event) {
	defer d.inflight.Done()
	ctx, cancel := context.WithTimeout(base, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()

	if err := handler(ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

func (d *inMemoryDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wildcard = append(d.wildcard, handler)
}

func (d *inMemoryDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.inflight.Wait()
}
