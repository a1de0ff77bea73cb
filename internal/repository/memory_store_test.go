package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicopel-ti/helpdesk/internal/domain"
)

func seedTicket(t *testing.T, repos Repositories, id, owner string, status domain.TicketStatus, createdAt time.Time) {
	t.Helper()
	ticket := &domain.Ticket{
		ID:          id,
		Requester:   "Ana",
		Sector:      "RH",
		Description: "Sem acesso ao e-mail",
		Status:      status,
		OwnerID:     owner,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, repos.Tickets.Create(context.Background(), ticket))
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()
	seedTicket(t, store.Repositories(), "t-1", "u-1", domain.TicketStatusOpen, now)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(repos Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, "t-1")
		require.NoError(t, err)
		ticket.Status = domain.TicketStatusPending
		require.NoError(t, repos.Tickets.Update(ctx, ticket))
		require.NoError(t, repos.History.Create(ctx, &domain.TicketHistory{
			ID: "h-1", TicketID: "t-1", NewStatus: domain.TicketStatusPending, CreatedAt: now,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	ticket, err := store.Repositories().Tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	history, err := store.Repositories().History.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStore_DeleteCascadesHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repos := store.Repositories()
	now := time.Now().UTC()
	seedTicket(t, repos, "t-1", "u-1", domain.TicketStatusOpen, now)
	seedTicket(t, repos, "t-2", "u-1", domain.TicketStatusOpen, now)

	for _, id := range []string{"t-1", "t-2"} {
		require.NoError(t, repos.History.Create(ctx, &domain.TicketHistory{
			ID: "h-" + id, TicketID: id, NewStatus: domain.TicketStatusOpen, CreatedAt: now,
		}))
	}

	require.NoError(t, repos.Tickets.Delete(ctx, "t-1"))

	_, err := repos.Tickets.GetByID(ctx, "t-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	history, err := repos.History.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	others, err := repos.History.ListByTicket(ctx, "t-2")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	assert.ErrorIs(t, repos.Tickets.Delete(ctx, "t-1"), pgx.ErrNoRows)
}

func TestMemoryStore_HistoryOrderUsesSeqOnTies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repos := store.Repositories()
	now := time.Now().UTC()
	seedTicket(t, repos, "t-1", "u-1", domain.TicketStatusOpen, now)

	statuses := []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusPending,
	}
	for i, status := range statuses {
		require.NoError(t, repos.History.Create(ctx, &domain.TicketHistory{
			ID:        string(rune('a' + i)),
			TicketID:  "t-1",
			NewStatus: status,
			CreatedAt: now,
		}))
	}

	history, err := repos.History.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, status := range statuses {
		assert.Equal(t, status, history[i].NewStatus)
	}
	assert.Less(t, history[0].Seq, history[1].Seq)
	assert.Less(t, history[1].Seq, history[2].Seq)

	latest, err := repos.History.LatestAt(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, latest.Equal(now))
}

func TestMemoryStore_HistoryRequiresTicket(t *testing.T) {
	store := NewMemoryStore()
	err := store.Repositories().History.Create(context.Background(), &domain.TicketHistory{
		ID: "h", TicketID: "missing", NewStatus: domain.TicketStatusOpen,
	})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryStore_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repos := store.Repositories()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	seedTicket(t, repos, "t-1", "u-1", domain.TicketStatusPending, base)
	seedTicket(t, repos, "t-2", "u-1", domain.TicketStatusOpen, base.Add(time.Hour))
	seedTicket(t, repos, "t-3", "u-2", domain.TicketStatusPending, base.Add(2*time.Hour))
	seedTicket(t, repos, "t-4", "u-1", domain.TicketStatusResolved, base.Add(3*time.Hour))

	owner := "u-1"
	notified := false
	tickets, err := repos.Tickets.ListWithFilter(ctx, TicketFilter{
		OwnerID:  &owner,
		Statuses: domain.NotifiableStatuses(),
		Notified: &notified,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "t-4", tickets[0].ID, "newest first")
	assert.Equal(t, "t-1", tickets[1].ID)

	page, err := repos.Tickets.ListWithFilter(ctx, TicketFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t-3", page[0].ID)
	assert.Equal(t, "t-2", page[1].ID)

	total, err := repos.Tickets.Count(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	byStatus, err := repos.Tickets.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, byStatus[domain.TicketStatusPending])

	daily, err := repos.Tickets.DailyCreated(ctx, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 4, daily[0].Count)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repos := store.Repositories()
	seedTicket(t, repos, "t-1", "u-1", domain.TicketStatusOpen, time.Now().UTC())

	ticket, err := repos.Tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	ticket.Status = domain.TicketStatusClosed

	again, err := repos.Tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, again.Status)
}
