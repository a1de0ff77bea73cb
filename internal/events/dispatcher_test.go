package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_DeliversToTypedAndWildcardHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var mu sync.Mutex
	seen := []string{}
	record := func(tag string) EventHandler {
		return func(_ context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, tag+":"+string(e.Type))
			return nil
		}
	}
	d.Subscribe(EventTicketCreated, record("typed"))
	d.SubscribeAll(record("all"))

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-1"}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketDeleted, TicketID: "t-1"}))
	d.Close()

	assert.ElementsMatch(t, []string{
		"typed:ticket.created",
		"all:ticket.created",
		"all:ticket.deleted",
	}, seen)
}

func TestDispatcher_HandlerOutlivesCancelledRequest(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop(), WithHandlerTimeout(time.Second))

	var cancelled atomic.Bool
	d.Subscribe(EventTicketUpdated, func(ctx context.Context, _ Event) error {
		time.Sleep(20 * time.Millisecond)
		cancelled.Store(ctx.Err() != nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Publish(ctx, Event{Type: EventTicketUpdated}))
	cancel()
	d.Close()

	assert.False(t, cancelled.Load())
}

func TestDispatcher_FailingHandlersDoNotAffectOthers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var delivered atomic.Int32
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		delivered.Add(1)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	d.Close()

	assert.Equal(t, int32(1), delivered.Load())
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	var observed atomic.Int32
	d := NewInMemoryDispatcher(nil, WithObserver(func(EventType) { observed.Add(1) }))

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	d.Close()

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
	assert.Equal(t, int32(1), observed.Load())
}
