package service

import (
	"context"

	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/repository"
)

// MetricsService replays the history ledger into per-ticket and global KPIs.
type MetricsService struct {
	store repository.Store
}

// NewMetricsService constructs the service.
func NewMetricsService(store repository.Store) *MetricsService {
	return &MetricsService{store: store}
}

// TicketMetrics returns resolution and pending minutes for one ticket.
func (m *MetricsService) TicketMetrics(ctx context.Context, ticketID string) (domain.TicketMetrics, error) {
	if err := checkTicketID(ticketID); err != nil {
		return domain.TicketMetrics{}, err
	}
	repos := m.store.Repositories()
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return domain.TicketMetrics{}, ticketLookupError(err, ticketID)
	}
	history, err := repos.History.ListByTicket(ctx, ticketID)
	if err != nil {
		return domain.TicketMetrics{}, err
	}
	return domain.TicketMetrics{
		TicketID:          ticket.ID,
		ResolutionMinutes: domain.ResolutionMinutes(ticket),
		PendingMinutes:    domain.PendingMinutes(history),
	}, nil
}

// AverageTimePerStatus averages hours spent per status across every ticket.
func (m *MetricsService) AverageTimePerStatus(ctx context.Context) (map[domain.TicketStatus]float64, error) {
	histories, err := m.store.Repositories().History.ListByTickets(ctx, nil)
	if err != nil {
		return nil, err
	}
	return domain.AverageTimePerStatus(histories), nil
}
