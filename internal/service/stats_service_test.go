package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicopel-ti/helpdesk/internal/domain"
)

func TestStats_DashboardAggregates(t *testing.T) {
	f := newTicketFixture(t)
	stats := NewStatsService(f.store)
	ctx := context.Background()

	first := f.create(t)
	f.clock.Advance(24 * time.Hour)
	second := f.create(t)
	f.create(t)

	f.move(t, first.ID, 90*time.Minute, domain.TicketStatusResolved)
	f.move(t, second.ID, 0, domain.TicketStatusPending)

	dashboard, err := stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.TicketStatus]int{
		domain.TicketStatusOpen:     1,
		domain.TicketStatusPending:  1,
		domain.TicketStatusResolved: 1,
	}, dashboard.ByStatus)
	assert.Equal(t, map[string]int{"Financeiro": 3}, dashboard.BySector)
	// first ticket: created day one 09:00, resolved day two 10:30
	assert.InDelta(t, 25.5, dashboard.AvgResolutionHours, 1e-9)

	days, err := stats.DailyCreated(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), days[0].Day)
	assert.Equal(t, 1, days[0].Count)
	assert.Equal(t, 2, days[1].Count)

	bounded, err := stats.DailyCreated(ctx, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.Equal(t, 2, bounded[0].Count)
}
