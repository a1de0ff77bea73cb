package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

func entry(seq int64, prev *TicketStatus, next TicketStatus, offset time.Duration) TicketHistory {
	return TicketHistory{
		Seq:            seq,
		TicketID:       "t-1",
		PreviousStatus: prev,
		NewStatus:      next,
		CreatedAt:      t0.Add(offset),
	}
}

func TestResolutionMinutes(t *testing.T) {
	completed := t0.Add(125 * time.Minute)
	tk := &Ticket{CreatedAt: t0, CompletedAt: &completed}
	assert.Equal(t, int64(125), ResolutionMinutes(tk))

	assert.Equal(t, int64(0), ResolutionMinutes(&Ticket{CreatedAt: t0}))
	assert.Equal(t, int64(0), ResolutionMinutes(&Ticket{CompletedAt: &completed}))
	assert.Equal(t, int64(0), ResolutionMinutes(nil))
}

func TestResolutionMinutes_Rounds(t *testing.T) {
	completed := t0.Add(90*time.Second + 10*time.Minute)
	tk := &Ticket{CreatedAt: t0, CompletedAt: &completed}
	assert.Equal(t, int64(12), ResolutionMinutes(tk))
}

func TestPendingMinutes(t *testing.T) {
	history := []TicketHistory{
		entry(1, StatusPtr(TicketStatusOpen), TicketStatusPending, 0),
		entry(2, StatusPtr(TicketStatusPending), TicketStatusInProgress, 30*time.Minute),
		entry(3, StatusPtr(TicketStatusInProgress), TicketStatusResolved, 150*time.Minute),
	}
	assert.Equal(t, int64(30), PendingMinutes(history))
}

func TestPendingMinutes_TrailingPendingNotCounted(t *testing.T) {
	history := []TicketHistory{
		entry(1, nil, TicketStatusOpen, 0),
		entry(2, StatusPtr(TicketStatusOpen), TicketStatusPending, 100*time.Minute),
	}
	assert.Equal(t, int64(0), PendingMinutes(history))
}

func TestPendingMinutes_MultipleIntervals(t *testing.T) {
	history := []TicketHistory{
		entry(1, nil, TicketStatusOpen, 0),
		entry(2, StatusPtr(TicketStatusOpen), TicketStatusPending, 10*time.Minute),
		entry(3, StatusPtr(TicketStatusPending), TicketStatusInProgress, 25*time.Minute),
		entry(4, StatusPtr(TicketStatusInProgress), TicketStatusPending, 40*time.Minute),
		entry(5, StatusPtr(TicketStatusPending), TicketStatusResolved, 60*time.Minute),
		entry(6, StatusPtr(TicketStatusResolved), TicketStatusPending, 70*time.Minute),
	}
	assert.Equal(t, int64(35), PendingMinutes(history))
	assert.Equal(t, int64(0), PendingMinutes(nil))
}

func TestAverageTimePerStatus(t *testing.T) {
	histories := map[string][]TicketHistory{
		"a": {
			entry(1, nil, TicketStatusOpen, 0),
			entry(2, StatusPtr(TicketStatusOpen), TicketStatusInProgress, time.Hour),
			entry(3, StatusPtr(TicketStatusInProgress), TicketStatusResolved, 3*time.Hour),
		},
		"b": {
			entry(4, nil, TicketStatusOpen, 0),
			entry(5, StatusPtr(TicketStatusOpen), TicketStatusPending, 3*time.Hour),
		},
	}

	avg := AverageTimePerStatus(histories)

	// Only entry 2 has both a previous status and a successor: OPEN, 1h→3h.
	assert.Equal(t, map[TicketStatus]float64{TicketStatusOpen: 2.0}, avg)
}

func TestAverageTimePerStatus_SkipsNilPrevious(t *testing.T) {
	histories := map[string][]TicketHistory{
		"a": {
			entry(1, nil, TicketStatusOpen, 0),
			entry(2, nil, TicketStatusOpen, time.Hour),
		},
	}
	assert.Empty(t, AverageTimePerStatus(histories))
	assert.Empty(t, AverageTimePerStatus(nil))
}

func TestAverageTimePerStatus_RoundsToTwoDecimals(t *testing.T) {
	histories := map[string][]TicketHistory{
		"a": {
			entry(1, nil, TicketStatusOpen, 0),
			entry(2, StatusPtr(TicketStatusOpen), TicketStatusInProgress, 10*time.Minute),
			entry(3, StatusPtr(TicketStatusInProgress), TicketStatusResolved, 30*time.Minute),
		},
	}
	assert.Equal(t, 0.33, AverageTimePerStatus(histories)[TicketStatusOpen])
}
