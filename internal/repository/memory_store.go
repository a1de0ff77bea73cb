package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nicopel-ti/helpdesk/internal/domain"
)

// MemoryStore is an in-process Store used when no database is configured and
// by service tests. Transactions hold the store lock for their whole duration
// and work on a copy that is swapped in on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	tickets map[string]domain.Ticket
	history []domain.TicketHistory
	users   map[string]domain.User
	seq     int64
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		tickets: make(map[string]domain.Ticket),
		users:   make(map[string]domain.User),
	}}
}

func (s *MemoryStore) Repositories() Repositories {
	run := func(fn func(*memState) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	}
	return memRepositories(run)
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	run := func(op func(*memState) error) error {
		return op(working)
	}
	if err := fn(memRepositories(run)); err != nil {
		return err
	}
	s.state = working
	return nil
}

type memRunner func(func(*memState) error) error

func memRepositories(run memRunner) Repositories {
	return Repositories{
		Tickets: &memTicketRepository{run: run},
		History: &memHistoryRepository{run: run},
		Users:   &memUserRepository{run: run},
	}
}

func (m *memState) clone() *memState {
	out := &memState{
		tickets: make(map[string]domain.Ticket, len(m.tickets)),
		history: make([]domain.TicketHistory, len(m.history)),
		users:   make(map[string]domain.User, len(m.users)),
		seq:     m.seq,
	}
	for id, ticket := range m.tickets {
		out.tickets[id] = cloneTicket(ticket)
	}
	copy(out.history, m.history)
	for id, user := range m.users {
		out.users[id] = user
	}
	return out
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AnyDesk = cloneString(t.AnyDesk)
	t.ImageURL = cloneString(t.ImageURL)
	t.Note = cloneString(t.Note)
	t.StartedAt = cloneTime(t.StartedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	if t.ExternalID != nil {
		id := *t.ExternalID
		t.ExternalID = &id
	}
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type memTicketRepository struct {
	run memRunner
}

func (r *memTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(m *memState) error {
		m.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *memTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(m *memState) error {
		if _, ok := m.tickets[ticket.ID]; !ok {
			return pgx.ErrNoRows
		}
		m.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *memTicketRepository) Delete(_ context.Context, id string) error {
	return r.run(func(m *memState) error {
		if _, ok := m.tickets[id]; !ok {
			return pgx.ErrNoRows
		}
		delete(m.tickets, id)
		kept := m.history[:0]
		for _, entry := range m.history {
			if entry.TicketID != id {
				kept = append(kept, entry)
			}
		}
		m.history = kept
		return nil
	})
}

func (r *memTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.run(func(m *memState) error {
		ticket, ok := m.tickets[id]
		if !ok {
			return pgx.ErrNoRows
		}
		copied := cloneTicket(ticket)
		out = &copied
		return nil
	})
	return out, err
}

func (r *memTicketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepository) GetByExternalID(_ context.Context, externalID int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.run(func(m *memState) error {
		for _, ticket := range m.tickets {
			if ticket.ExternalID != nil && *ticket.ExternalID == externalID {
				copied := cloneTicket(ticket)
				out = &copied
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r *memTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	err := r.run(func(m *memState) error {
		result = m.filterTickets(filter)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *memTicketRepository) Count(_ context.Context, filter TicketFilter) (int, error) {
	var total int
	err := r.run(func(m *memState) error {
		total = len(m.filterTickets(filter))
		return nil
	})
	return total, err
}

func (r *memTicketRepository) CountByStatus(_ context.Context) (map[domain.TicketStatus]int, error) {
	counts := make(map[domain.TicketStatus]int)
	err := r.run(func(m *memState) error {
		for _, ticket := range m.tickets {
			counts[ticket.Status]++
		}
		return nil
	})
	return counts, err
}

func (r *memTicketRepository) CountBySector(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := r.run(func(m *memState) error {
		for _, ticket := range m.tickets {
			counts[ticket.Sector]++
		}
		return nil
	})
	return counts, err
}

func (r *memTicketRepository) AverageResolutionHours(_ context.Context) (float64, error) {
	var avg float64
	err := r.run(func(m *memState) error {
		var total time.Duration
		var n int
		for _, ticket := range m.tickets {
			if ticket.CompletedAt == nil {
				continue
			}
			total += ticket.CompletedAt.Sub(ticket.CreatedAt)
			n++
		}
		if n > 0 {
			avg = total.Hours() / float64(n)
		}
		return nil
	})
	return avg, err
}

func (r *memTicketRepository) DailyCreated(_ context.Context, from, to time.Time) ([]DailyCount, error) {
	buckets := make(map[time.Time]int)
	err := r.run(func(m *memState) error {
		for _, ticket := range m.tickets {
			if ticket.CreatedAt.Before(from) || !ticket.CreatedAt.Before(to) {
				continue
			}
			created := ticket.CreatedAt.UTC()
			day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
			buckets[day]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]DailyCount, 0, len(buckets))
	for day, n := range buckets {
		result = append(result, DailyCount{Day: day, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.Before(result[j].Day) })
	return result, nil
}

func (m *memState) filterTickets(f TicketFilter) []domain.Ticket {
	statuses := make(map[domain.TicketStatus]struct{}, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = struct{}{}
	}

	out := []domain.Ticket{}
	for _, ticket := range m.tickets {
		if f.OwnerID != nil && ticket.OwnerID != *f.OwnerID {
			continue
		}
		if f.Sector != nil && ticket.Sector != *f.Sector {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[ticket.Status]; !ok {
				continue
			}
		}
		if f.Notified != nil && ticket.Notified != *f.Notified {
			continue
		}
		if f.CreatedFrom != nil && ticket.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && ticket.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		out = append(out, cloneTicket(ticket))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type memHistoryRepository struct {
	run memRunner
}

func (r *memHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	return r.run(func(m *memState) error {
		if _, ok := m.tickets[history.TicketID]; !ok {
			// mirrors the foreign key on ticket_history.ticket_id
			return pgx.ErrNoRows
		}
		m.seq++
		history.Seq = m.seq
		m.history = append(m.history, *history)
		return nil
	})
}

func (r *memHistoryRepository) LatestAt(_ context.Context, ticketID string) (time.Time, error) {
	var latest time.Time
	err := r.run(func(m *memState) error {
		for _, entry := range m.history {
			if entry.TicketID == ticketID && entry.CreatedAt.After(latest) {
				latest = entry.CreatedAt
			}
		}
		return nil
	})
	return latest, err
}

func (r *memHistoryRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	result := []domain.TicketHistory{}
	err := r.run(func(m *memState) error {
		for _, entry := range m.history {
			if entry.TicketID == ticketID {
				result = append(result, entry)
			}
		}
		return nil
	})
	sortHistory(result)
	return result, err
}

func (r *memHistoryRepository) ListByTickets(_ context.Context, ticketIDs []string) (map[string][]domain.TicketHistory, error) {
	var wanted map[string]struct{}
	if ticketIDs != nil {
		wanted = make(map[string]struct{}, len(ticketIDs))
		for _, id := range ticketIDs {
			wanted[id] = struct{}{}
		}
	}

	grouped := make(map[string][]domain.TicketHistory)
	err := r.run(func(m *memState) error {
		for _, entry := range m.history {
			if wanted != nil {
				if _, ok := wanted[entry.TicketID]; !ok {
					continue
				}
			}
			grouped[entry.TicketID] = append(grouped[entry.TicketID], entry)
		}
		return nil
	})
	for _, entries := range grouped {
		sortHistory(entries)
	}
	return grouped, err
}

func sortHistory(entries []domain.TicketHistory) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Seq < entries[j].Seq
	})
}

type memUserRepository struct {
	run memRunner
}

func (r *memUserRepository) Create(_ context.Context, user *domain.User) error {
	return r.run(func(m *memState) error {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		m.users[user.ID] = *user
		return nil
	})
}

func (r *memUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(m *memState) error {
		user, ok := m.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &user
		return nil
	})
	return out, err
}
