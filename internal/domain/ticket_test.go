package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenTicket(createdAt time.Time) *Ticket {
	return &Ticket{
		ID:          "t-1",
		Requester:   "Maria",
		Sector:      "Financeiro",
		Description: "Impressora sem toner",
		Status:      TicketStatusOpen,
		OwnerID:     "u-1",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestApplyStatus_SameStatusIsNoop(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tk := newOpenTicket(t0)
	tk.Notified = true

	prev, changed := tk.ApplyStatus(TicketStatusOpen, t0.Add(time.Hour))

	assert.False(t, changed)
	assert.Equal(t, TicketStatusOpen, prev)
	assert.Nil(t, tk.StartedAt)
	assert.Nil(t, tk.CompletedAt)
	assert.True(t, tk.Notified)
	assert.Equal(t, t0, tk.UpdatedAt)
}

func TestApplyStatus_FirstOccurrenceWins(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tk := newOpenTicket(t0)

	_, changed := tk.ApplyStatus(TicketStatusInProgress, t0.Add(10*time.Minute))
	require.True(t, changed)
	require.NotNil(t, tk.StartedAt)
	assert.Equal(t, t0.Add(10*time.Minute), *tk.StartedAt)

	tk.ApplyStatus(TicketStatusPending, t0.Add(20*time.Minute))
	tk.ApplyStatus(TicketStatusInProgress, t0.Add(30*time.Minute))
	assert.Equal(t, t0.Add(10*time.Minute), *tk.StartedAt)

	tk.ApplyStatus(TicketStatusResolved, t0.Add(40*time.Minute))
	require.NotNil(t, tk.CompletedAt)
	assert.Equal(t, t0.Add(40*time.Minute), *tk.CompletedAt)

	tk.ApplyStatus(TicketStatusInProgress, t0.Add(50*time.Minute))
	tk.ApplyStatus(TicketStatusClosed, t0.Add(60*time.Minute))
	assert.Equal(t, t0.Add(40*time.Minute), *tk.CompletedAt)
}

func TestApplyStatus_TimestampsStayOrdered(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tk := newOpenTicket(t0)

	tk.ApplyStatus(TicketStatusResolved, t0.Add(5*time.Minute))
	tk.ApplyStatus(TicketStatusInProgress, t0.Add(15*time.Minute))

	assert.Nil(t, tk.StartedAt, "reopening a completed ticket must not stamp started_at")
	require.NotNil(t, tk.CompletedAt)
	assert.False(t, tk.CompletedAt.Before(tk.CreatedAt))
}

// Completion takes precedence over the first-entry rule for StartedAt.
func TestApplyStatus_CompletionTakesPrecedenceOverStart(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	started := newOpenTicket(t0)
	started.ApplyStatus(TicketStatusInProgress, t0.Add(time.Minute))
	started.ApplyStatus(TicketStatusResolved, t0.Add(2*time.Minute))
	started.ApplyStatus(TicketStatusInProgress, t0.Add(3*time.Minute))
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, t0.Add(time.Minute), *started.StartedAt, "reopening keeps the first start")

	skipped := newOpenTicket(t0)
	skipped.ApplyStatus(TicketStatusClosed, t0.Add(time.Minute))
	skipped.ApplyStatus(TicketStatusInProgress, t0.Add(2*time.Minute))
	assert.Nil(t, skipped.StartedAt, "a ticket completed without starting is never stamped as started")

	for _, tk := range []*Ticket{started, skipped} {
		require.NotNil(t, tk.CompletedAt)
		if tk.StartedAt != nil {
			assert.False(t, tk.StartedAt.After(*tk.CompletedAt))
		}
		assert.False(t, tk.CompletedAt.Before(tk.CreatedAt))
	}
}

func TestApplyStatus_ResetsNotifiedOnEveryNotifiableEntry(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tk := newOpenTicket(t0)

	tk.Notified = true
	tk.ApplyStatus(TicketStatusPending, t0.Add(time.Minute))
	assert.False(t, tk.Notified)

	tk.Notified = true
	tk.ApplyStatus(TicketStatusInProgress, t0.Add(2*time.Minute))
	assert.True(t, tk.Notified, "entering IN_PROGRESS keeps the flag")

	tk.ApplyStatus(TicketStatusPending, t0.Add(3*time.Minute))
	assert.False(t, tk.Notified, "second entry into PENDING resets again")

	tk.Notified = true
	tk.ApplyStatus(TicketStatusResolved, t0.Add(4*time.Minute))
	assert.False(t, tk.Notified)

	tk.Notified = true
	tk.ApplyStatus(TicketStatusClosed, t0.Add(5*time.Minute))
	assert.False(t, tk.Notified)
}

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "Em andamento", TicketStatusInProgress.Label())
	assert.Equal(t, "Fechado", TicketStatusClosed.Label())
	assert.True(t, TicketStatusClosed.IsResolvedFamily())
	assert.False(t, TicketStatusPending.IsResolvedFamily())
	assert.True(t, TicketStatusPending.NotifiesOwner())
	assert.False(t, TicketStatus("WAT").Valid())
}
