package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/events"
	"github.com/nicopel-ti/helpdesk/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// syncDispatcher delivers events inline so tests observe subscriber effects
// without waiting.
type syncDispatcher struct {
	mu        sync.Mutex
	published []events.Event
	handlers  map[events.EventType][]events.EventHandler
}

func newSyncDispatcher() *syncDispatcher {
	return &syncDispatcher{handlers: make(map[events.EventType][]events.EventHandler)}
}

func (d *syncDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	handlers := append([]events.EventHandler(nil), d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}

func (d *syncDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *syncDispatcher) SubscribeAll(handler events.EventHandler) {
	for _, t := range []events.EventType{events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketDeleted} {
		d.Subscribe(t, handler)
	}
}

func (d *syncDispatcher) Close() {}

func (d *syncDispatcher) Events() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event(nil), d.published...)
}

type ticketFixture struct {
	store      *repository.MemoryStore
	clock      *fakeClock
	dispatcher *syncDispatcher
	tickets    *TicketService
	owner      *domain.User
	admin      *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := newFakeClock()
	dispatcher := newSyncDispatcher()

	f := &ticketFixture{
		store:      store,
		clock:      clock,
		dispatcher: dispatcher,
		tickets: NewTicketService(TicketDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Clock:      clock.Now,
		}),
		owner: &domain.User{ID: uuid.NewString(), Name: "Ana", Email: "ana@example.com", Role: domain.UserRoleUser},
		admin: &domain.User{ID: uuid.NewString(), Name: "Rui", Email: "rui@example.com", Role: domain.UserRoleAdmin},
	}
	users := store.Repositories().Users
	require.NoError(t, users.Create(context.Background(), f.owner))
	require.NoError(t, users.Create(context.Background(), f.admin))
	return f
}

func (f *ticketFixture) ownerActor() events.Actor { return events.ActorFromUser(f.owner) }
func (f *ticketFixture) adminActor() events.Actor { return events.ActorFromUser(f.admin) }

func (f *ticketFixture) create(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), f.ownerActor(), TicketCreateInput{
		Requester:   "Ana Souza",
		Sector:      "Financeiro",
		Description: "Impressora não imprime",
		OwnerID:     f.owner.ID,
	})
	require.NoError(t, err)
	return ticket
}

func (f *ticketFixture) move(t *testing.T, ticketID string, after time.Duration, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	f.clock.Advance(after)
	ticket, err := f.tickets.Transition(context.Background(), f.adminActor(), ticketID, status, "")
	require.NoError(t, err)
	return ticket
}
