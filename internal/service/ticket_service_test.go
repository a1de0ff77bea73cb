package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/events"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

func TestCreateTicket_RequiresFields(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.tickets.CreateTicket(context.Background(), f.ownerActor(), TicketCreateInput{
		Requester: "  ",
		OwnerID:   f.owner.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "requester")
	assert.Contains(t, details, "sector")
	assert.Contains(t, details, "description")
	assert.Empty(t, f.dispatcher.Events())
}

func TestCreateTicket_WritesCreationEntry(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, f.clock.Now(), ticket.CreatedAt)
	assert.Nil(t, ticket.StartedAt)
	assert.Nil(t, ticket.CompletedAt)

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)
	assert.Equal(t, domain.TicketStatusOpen, history[0].NewStatus)
	assert.Equal(t, domain.CreationNote, history[0].Note)
	assert.Equal(t, &f.owner.ID, history[0].ChangedByID)

	published := f.dispatcher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTicketCreated, published[0].Type)
	snapshot, ok := published[0].Payload.(events.TicketSnapshot)
	require.True(t, ok)
	assert.Equal(t, ticket.ID, snapshot.ID)
	assert.Equal(t, "Aberto", snapshot.StatusLabel)
}

func TestTransition_SameStatusIsNoop(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	f.clock.Advance(time.Minute)

	got, err := f.tickets.Transition(context.Background(), f.adminActor(), ticket.ID, domain.TicketStatusOpen, "again")
	require.NoError(t, err)
	assert.Equal(t, ticket.UpdatedAt, got.UpdatedAt)

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, f.dispatcher.Events(), 1)
}

func TestTransition_StampsLifecycleTimestamps(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	created := ticket.CreatedAt

	inProgress := f.move(t, ticket.ID, 10*time.Minute, domain.TicketStatusInProgress)
	require.NotNil(t, inProgress.StartedAt)
	assert.Equal(t, created.Add(10*time.Minute), *inProgress.StartedAt)

	f.move(t, ticket.ID, 5*time.Minute, domain.TicketStatusPending)
	again := f.move(t, ticket.ID, 5*time.Minute, domain.TicketStatusInProgress)
	assert.Equal(t, created.Add(10*time.Minute), *again.StartedAt, "started_at keeps the first occurrence")

	resolved := f.move(t, ticket.ID, 5*time.Minute, domain.TicketStatusResolved)
	require.NotNil(t, resolved.CompletedAt)
	assert.Equal(t, created.Add(25*time.Minute), *resolved.CompletedAt)

	closed := f.move(t, ticket.ID, 5*time.Minute, domain.TicketStatusClosed)
	assert.Equal(t, created.Add(25*time.Minute), *closed.CompletedAt, "completed_at keeps the first occurrence")

	published := f.dispatcher.Events()
	last := published[len(published)-1]
	payload, ok := last.Payload.(events.TicketUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, events.UpdateStatus, payload.Kind)
	assert.Equal(t, domain.TicketStatusResolved, *payload.PreviousStatus)
	assert.Equal(t, domain.TicketStatusClosed, payload.Status)
}

func TestTransition_RejectsUnknownStatus(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)

	_, err := f.tickets.Transition(context.Background(), f.adminActor(), ticket.ID, domain.TicketStatus("LOST"), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestTransition_UnknownTicket(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.tickets.Transition(context.Background(), f.adminActor(), uuid.NewString(), domain.TicketStatusPending, "")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.tickets.Transition(context.Background(), f.adminActor(), "not-a-uuid", domain.TicketStatusPending, "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransition_HistoryStaysMonotonicWhenClockStepsBack(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)

	f.move(t, ticket.ID, time.Hour, domain.TicketStatusInProgress)
	f.move(t, ticket.ID, -2*time.Hour, domain.TicketStatusPending)
	f.move(t, ticket.ID, -time.Hour, domain.TicketStatusResolved)

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.Before(history[i-1].CreatedAt), "entry %d goes back in time", i)
		assert.Greater(t, history[i].Seq, history[i-1].Seq)
	}
	assert.Equal(t, []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusPending,
		domain.TicketStatusResolved,
	}, []domain.TicketStatus{history[0].NewStatus, history[1].NewStatus, history[2].NewStatus, history[3].NewStatus})

	got, err := f.tickets.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, got.CompletedAt.Before(*got.StartedAt))
	assert.False(t, got.StartedAt.Before(got.CreatedAt))
}

func TestNoteEditing(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	ctx := context.Background()

	got, err := f.tickets.UpdateNote(ctx, f.adminActor(), ticket.ID, "  trocar toner  ")
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, "trocar toner", *got.Note)

	got, err = f.tickets.AppendNote(ctx, f.adminActor(), ticket.ID, "toner trocado")
	require.NoError(t, err)
	assert.Equal(t, "trocar toner\n\n[04/03/2024 09:00 ADMIN] toner trocado", *got.Note)

	got, err = f.tickets.UpdateNote(ctx, f.adminActor(), ticket.ID, "")
	require.NoError(t, err)
	assert.Nil(t, got.Note)

	_, err = f.tickets.AppendNote(ctx, f.adminActor(), ticket.ID, " ")
	assert.True(t, apperrors.IsValidation(err))

	history, err := f.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "note edits are not status transitions")

	published := f.dispatcher.Events()
	payload, ok := published[len(published)-1].Payload.(events.TicketUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, events.UpdateNote, payload.Kind)
	assert.Nil(t, payload.PreviousStatus)
}

func TestDelete_CascadesHistory(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	f.move(t, ticket.ID, time.Minute, domain.TicketStatusInProgress)
	ctx := context.Background()

	require.NoError(t, f.tickets.Delete(ctx, f.adminActor(), ticket.ID))

	_, err := f.tickets.GetTicket(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
	history, err := f.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	published := f.dispatcher.Events()
	last := published[len(published)-1]
	assert.Equal(t, events.EventTicketDeleted, last.Type)
	assert.Equal(t, events.TicketDeletedPayload{ID: ticket.ID}, last.Payload)

	err = f.tickets.Delete(ctx, f.adminActor(), ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAcknowledge(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	ctx := context.Background()
	f.move(t, ticket.ID, time.Minute, domain.TicketStatusPending)
	eventsBefore := len(f.dispatcher.Events())

	_, err := f.tickets.Acknowledge(ctx, ticket.ID, f.admin.ID)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.tickets.Acknowledge(ctx, uuid.NewString(), f.owner.ID)
	assert.True(t, apperrors.IsNotFound(err))

	changed, err := f.tickets.Acknowledge(ctx, ticket.ID, f.owner.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.tickets.Acknowledge(ctx, ticket.ID, f.owner.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, f.dispatcher.Events(), eventsBefore, "acknowledging emits nothing")
}

func TestListTickets_FiltersAndPages(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		ids = append(ids, f.create(t).ID)
	}
	f.move(t, ids[0], time.Minute, domain.TicketStatusPending)

	page, err := f.tickets.ListTickets(ctx, TicketListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID, "newest first")

	pending, err := f.tickets.ListTickets(ctx, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusPending}})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Total)
	assert.Equal(t, ids[0], pending.Items[0].ID)

	other := uuid.NewString()
	none, err := f.tickets.ListTickets(ctx, TicketListFilter{OwnerID: &other})
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.Empty(t, none.Items)
}

func TestListHistory_UnknownTicketIsEmpty(t *testing.T) {
	f := newTicketFixture(t)

	history, err := f.tickets.ListHistory(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = f.tickets.ListHistory(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTransition_ConcurrentCallsKeepLedgerConsistent(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	statuses := domain.AllStatuses()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%7 == 0 {
				f.clock.Advance(time.Second)
			}
			_, err := f.tickets.Transition(context.Background(), f.adminActor(), ticket.ID, statuses[i%len(statuses)], "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Greater(t, len(history), 1)

	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		require.NotNil(t, cur.PreviousStatus)
		assert.Equal(t, prev.NewStatus, *cur.PreviousStatus, "entry %d breaks the status chain", i)
		assert.NotEqual(t, cur.NewStatus, *cur.PreviousStatus)
		assert.Greater(t, cur.Seq, prev.Seq)
		assert.False(t, cur.CreatedAt.Before(prev.CreatedAt))
	}

	final, err := f.tickets.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, history[len(history)-1].NewStatus, final.Status)

	updates := 0
	for _, e := range f.dispatcher.Events() {
		if e.Type == events.EventTicketUpdated {
			updates++
		}
	}
	assert.Equal(t, len(history)-1, updates, "one event per recorded transition")
}

func TestUpdateTicket_AppliesStatusAndNoteTogether(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	f.clock.Advance(time.Minute)
	before := len(f.dispatcher.Events())

	status := domain.TicketStatusPending
	note := "  aguardando peça  "
	got, err := f.tickets.UpdateTicket(context.Background(), f.adminActor(), ticket.ID, TicketUpdateInput{Status: &status, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, got.Status)
	require.NotNil(t, got.Note)
	assert.Equal(t, "aguardando peça", *got.Note)

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "aguardando peça", history[1].Note)

	published := f.dispatcher.Events()[before:]
	require.Len(t, published, 1, "a combined edit emits a single event")
	payload, ok := published[0].Payload.(events.TicketUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, events.UpdateStatus, payload.Kind)
	assert.Equal(t, "aguardando peça", payload.Note)
}

func TestUpdateTicket_StatusOnlyUsesPanelAnnotation(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	existing := "verificar cabo"
	_, err := f.tickets.UpdateNote(context.Background(), f.adminActor(), ticket.ID, existing)
	require.NoError(t, err)
	before := len(f.dispatcher.Events())

	status := domain.TicketStatusInProgress
	got, err := f.tickets.UpdateTicket(context.Background(), f.adminActor(), ticket.ID, TicketUpdateInput{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, existing, *got.Note, "the admin note is untouched")

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.PanelStatusNote, history[1].Note)

	published := f.dispatcher.Events()[before:]
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.TicketUpdatedPayload)
	assert.Empty(t, payload.Note, "the default annotation is not forwarded as a followup")
}

func TestUpdateTicket_NoteOnlyAndNoops(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t)
	before := len(f.dispatcher.Events())

	_, err := f.tickets.UpdateTicket(context.Background(), f.adminActor(), ticket.ID, TicketUpdateInput{})
	assert.True(t, apperrors.IsValidation(err))

	same := domain.TicketStatusOpen
	_, err = f.tickets.UpdateTicket(context.Background(), f.adminActor(), ticket.ID, TicketUpdateInput{Status: &same})
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.Events(), before, "same status without note changes nothing")

	note := "ligar para o ramal 204"
	got, err := f.tickets.UpdateTicket(context.Background(), f.adminActor(), ticket.ID, TicketUpdateInput{Status: &same, Note: &note})
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)

	history, err := f.tickets.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	published := f.dispatcher.Events()[before:]
	require.Len(t, published, 1)
	assert.Equal(t, events.UpdateNote, published[0].Payload.(events.TicketUpdatedPayload).Kind)

	lost := domain.TicketStatus("LOST")
	_, err = f.tickets.UpdateTicket(context.Background(), f.adminActor(), ticket.ID, TicketUpdateInput{Status: &lost})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.tickets.UpdateTicket(context.Background(), f.adminActor(), uuid.NewString(), TicketUpdateInput{Note: &note})
	assert.True(t, apperrors.IsNotFound(err))
}
