package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/repository"
)

// Dashboard aggregates the admin chart data.
type Dashboard struct {
	ByStatus           map[domain.TicketStatus]int
	BySector           map[string]int
	AvgResolutionHours float64
}

// StatsService serves dashboard and Grafana aggregates.
type StatsService struct {
	store repository.Store
	now   func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Dashboard runs the three aggregates concurrently.
func (s *StatsService) Dashboard(ctx context.Context) (Dashboard, error) {
	// Each goroutine writes to its own field; Wait orders the writes before the read.
	var out Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.CountByStatus(gctx)
		if err != nil {
			return fmt.Errorf("count by status: %w", err)
		}
		out.ByStatus = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.CountBySector(gctx)
		if err != nil {
			return fmt.Errorf("count by sector: %w", err)
		}
		out.BySector = counts
		return nil
	})
	g.Go(func() error {
		hours, err := s.AverageResolutionHours(gctx)
		if err != nil {
			return fmt.Errorf("average resolution: %w", err)
		}
		out.AvgResolutionHours = hours
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

func (s *StatsService) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	return s.store.Repositories().Tickets.CountByStatus(ctx)
}

func (s *StatsService) CountBySector(ctx context.Context) (map[string]int, error) {
	return s.store.Repositories().Tickets.CountBySector(ctx)
}

// AverageResolutionHours is rounded to two decimals; 0 when nothing was resolved.
func (s *StatsService) AverageResolutionHours(ctx context.Context) (float64, error) {
	hours, err := s.store.Repositories().Tickets.AverageResolutionHours(ctx)
	if err != nil {
		return 0, err
	}
	return math.Round(hours*100) / 100, nil
}

// DailyCreated returns tickets created per day in [from, to). A zero bound
// is open-ended.
func (s *StatsService) DailyCreated(ctx context.Context, from, to time.Time) ([]repository.DailyCount, error) {
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = s.now().Add(24 * time.Hour)
	}
	return s.store.Repositories().Tickets.DailyCreated(ctx, from, to)
}
