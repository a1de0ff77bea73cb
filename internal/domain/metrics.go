package domain

import (
	"math"
	"time"
)

// TicketMetrics are the per-ticket KPIs shown on the admin dashboard.
type TicketMetrics struct {
	TicketID          string `json:"ticket_id"`
	ResolutionMinutes int64  `json:"resolution_minutes"`
	PendingMinutes    int64  `json:"pending_minutes"`
}

// ResolutionMinutes is the time from creation to first completion. Missing
// timestamps yield 0.
func ResolutionMinutes(t *Ticket) int64 {
	if t == nil || t.CompletedAt == nil || t.CreatedAt.IsZero() {
		return 0
	}
	return roundMinutes(t.CompletedAt.Sub(t.CreatedAt))
}

// PendingMinutes sums every interval spent in PENDING. Entries must be in
// ledger order. A trailing PENDING entry has no successor and is not counted.
func PendingMinutes(entries []TicketHistory) int64 {
	var total time.Duration
	for i := 0; i+1 < len(entries); i++ {
		if entries[i].NewStatus != TicketStatusPending {
			continue
		}
		total += entries[i+1].CreatedAt.Sub(entries[i].CreatedAt)
	}
	return roundMinutes(total)
}

// AverageTimePerStatus replays each ticket's ledger and averages durations per
// status bucket. Every entry except the last contributes the gap to its
// successor, charged to the entry's own PreviousStatus. Entries without a
// previous status (the creation entry) are excluded and statuses without
// samples are omitted.
func AverageTimePerStatus(histories map[string][]TicketHistory) map[TicketStatus]float64 {
	sums := make(map[TicketStatus]time.Duration)
	samples := make(map[TicketStatus]int)

	for _, entries := range histories {
		for i := 0; i+1 < len(entries); i++ {
			prev := entries[i].PreviousStatus
			if prev == nil {
				continue
			}
			sums[*prev] += entries[i+1].CreatedAt.Sub(entries[i].CreatedAt)
			samples[*prev]++
		}
	}

	result := make(map[TicketStatus]float64, len(samples))
	for status, n := range samples {
		if n == 0 {
			continue
		}
		avg := sums[status].Hours() / float64(n)
		result[status] = math.Round(avg*100) / 100
	}
	return result
}

func roundMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Round(d.Minutes()))
}
