package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nicopel-ti/helpdesk/internal/domain"
)

// TicketHistoryRepository stores the append-only status ledger.
type TicketHistoryRepository interface {
	// Create inserts the entry and fills its Seq.
	Create(ctx context.Context, history *domain.TicketHistory) error
	// LatestAt returns the created_at of the newest entry for the ticket, or
	// the zero time when it has none.
	LatestAt(ctx context.Context, ticketID string) (time.Time, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
	// ListByTickets groups entries by ticket id. A nil slice means every ticket.
	ListByTickets(ctx context.Context, ticketIDs []string) (map[string][]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

const historyColumns = `id, ticket_id, seq, previous_status, new_status, note, changed_by_id, created_at`

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (id, ticket_id, previous_status, new_status, note, changed_by_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING seq`
	return r.db.QueryRow(ctx, query,
		history.ID,
		history.TicketID,
		history.PreviousStatus,
		history.NewStatus,
		history.Note,
		history.ChangedByID,
		history.CreatedAt,
	).Scan(&history.Seq)
}

func (r *ticketHistoryRepository) LatestAt(ctx context.Context, ticketID string) (time.Time, error) {
	var latest *time.Time
	if err := r.db.QueryRow(ctx,
		`SELECT MAX(created_at) FROM ticket_history WHERE ticket_id=$1`, ticketID,
	).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+historyColumns+` FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at, seq`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *ticketHistoryRepository) ListByTickets(ctx context.Context, ticketIDs []string) (map[string][]domain.TicketHistory, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ticketIDs == nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+historyColumns+` FROM ticket_history ORDER BY ticket_id, created_at, seq`)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+historyColumns+` FROM ticket_history WHERE ticket_id = ANY($1) ORDER BY ticket_id, created_at, seq`,
			ticketIDs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(map[string][]domain.TicketHistory)
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		grouped[entry.TicketID] = append(grouped[entry.TicketID], entry)
	}
	return grouped, rows.Err()
}

func scanHistory(row pgx.Row) (domain.TicketHistory, error) {
	var entry domain.TicketHistory
	err := row.Scan(
		&entry.ID,
		&entry.TicketID,
		&entry.Seq,
		&entry.PreviousStatus,
		&entry.NewStatus,
		&entry.Note,
		&entry.ChangedByID,
		&entry.CreatedAt,
	)
	return entry, err
}
