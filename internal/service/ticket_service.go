package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/events"
	"github.com/nicopel-ti/helpdesk/internal/observability"
	"github.com/nicopel-ti/helpdesk/internal/repository"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Every mutation runs in one
// transaction holding the ticket row lock; events go out after commit.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Clock defaults to time.Now in UTC.
	Clock func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Requester   string
	Sector      string
	Description string
	AnyDesk     *string
	ImageURL    *string
	OwnerID     string
}

// TicketListFilter describes admin listing filters.
type TicketListFilter struct {
	OwnerID     *string
	Sector      *string
	Statuses    []domain.TicketStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Items []domain.Ticket
	Total int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicket opens a ticket for its owner and writes the creation entry
// of its history.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	requester := strings.TrimSpace(input.Requester)
	sector := strings.TrimSpace(input.Sector)
	description := strings.TrimSpace(input.Description)
	owner := strings.TrimSpace(input.OwnerID)

	details := map[string]any{}
	if requester == "" {
		details["requester"] = "required"
	}
	if sector == "" {
		details["sector"] = "required"
	}
	if description == "" {
		details["description"] = "required"
	}
	if owner == "" {
		details["owner_id"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Requester:   requester,
		Sector:      sector,
		Description: description,
		Status:      domain.TicketStatusOpen,
		AnyDesk:     trimmedOrNil(input.AnyDesk),
		ImageURL:    trimmedOrNil(input.ImageURL),
		OwnerID:     owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return repos.History.Create(ctx, &domain.TicketHistory{
			ID:          uuid.NewString(),
			TicketID:    ticket.ID,
			NewStatus:   domain.TicketStatusOpen,
			Note:        domain.CreationNote,
			ChangedByID: actor.UserID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("sector", ticket.Sector),
		zap.String("owner_id", ticket.OwnerID),
	)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.SnapshotOf(ticket),
	})
	return ticket, nil
}

// Transition moves the ticket to newStatus. Requesting the current status is
// a no-op that returns the ticket unchanged and writes no history.
func (s *TicketService) Transition(ctx context.Context, actor events.Actor, ticketID string, newStatus domain.TicketStatus, note string) (*domain.Ticket, error) {
	if err := checkTicketID(ticketID); err != nil {
		return nil, err
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(newStatus)})
	}
	note = strings.TrimSpace(note)

	var (
		ticket   *domain.Ticket
		previous domain.TicketStatus
		changed  bool
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		previous, changed, err = s.applyTransition(ctx, repos, actor, ticket, newStatus, note)
		if err != nil || !changed {
			return err
		}
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return ticket, nil
	}

	s.publishTransition(ctx, actor, ticket, previous, note)
	return ticket, nil
}

// TicketUpdateInput is an admin panel edit. Either field may be nil.
type TicketUpdateInput struct {
	Status *domain.TicketStatus
	Note   *string
}

// UpdateTicket applies a panel edit under a single row lock: the status change
// is annotated with the note (PanelStatusNote when none is given) and the note
// then replaces the ticket's admin note. One ticket.updated event is emitted,
// of kind status when the status changed.
func (s *TicketService) UpdateTicket(ctx context.Context, actor events.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := checkTicketID(ticketID); err != nil {
		return nil, err
	}
	if input.Status == nil && input.Note == nil {
		return nil, apperrors.NewValidationError("nothing to update", map[string]any{"status": "status or note required"})
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(*input.Status)})
	}

	note := ""
	if input.Note != nil {
		note = strings.TrimSpace(*input.Note)
	}
	annotation := note
	if annotation == "" {
		annotation = domain.PanelStatusNote
	}

	var (
		ticket        *domain.Ticket
		previous      domain.TicketStatus
		statusChanged bool
		noteChanged   bool
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		if input.Status != nil {
			previous, statusChanged, err = s.applyTransition(ctx, repos, actor, ticket, *input.Status, annotation)
			if err != nil {
				return err
			}
		}
		if input.Note != nil {
			ticket.Note = nil
			if note != "" {
				ticket.Note = &note
			}
			ticket.UpdatedAt = maxTime(s.now(), ticket.UpdatedAt)
			noteChanged = true
		}
		if !statusChanged && !noteChanged {
			return nil
		}
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case statusChanged:
		s.publishTransition(ctx, actor, ticket, previous, note)
	case noteChanged:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketUpdatedPayload{
				TicketSnapshot: events.SnapshotOf(ticket),
				Kind:           events.UpdateNote,
				Note:           note,
			},
		})
	}
	return ticket, nil
}

// applyTransition changes the status of a locked ticket and appends the
// history entry. The caller persists the ticket.
func (s *TicketService) applyTransition(ctx context.Context, repos repository.Repositories, actor events.Actor, ticket *domain.Ticket, newStatus domain.TicketStatus, annotation string) (domain.TicketStatus, bool, error) {
	if ticket.Status == newStatus {
		return ticket.Status, false, nil
	}
	at, err := s.ledgerTime(ctx, repos, ticket)
	if err != nil {
		return "", false, err
	}
	previous, changed := ticket.ApplyStatus(newStatus, at)
	err = repos.History.Create(ctx, &domain.TicketHistory{
		ID:             uuid.NewString(),
		TicketID:       ticket.ID,
		PreviousStatus: domain.StatusPtr(previous),
		NewStatus:      newStatus,
		Note:           annotation,
		ChangedByID:    actor.UserID,
		CreatedAt:      at,
	})
	return previous, changed, err
}

func (s *TicketService) publishTransition(ctx context.Context, actor events.Actor, ticket *domain.Ticket, previous domain.TicketStatus, note string) {
	s.metrics.RecordTransition(string(previous), string(ticket.Status))
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(ticket.Status)),
		zap.String("actor", string(actor.Type)),
	)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketUpdatedPayload{
			TicketSnapshot: events.SnapshotOf(ticket),
			Kind:           events.UpdateStatus,
			PreviousStatus: domain.StatusPtr(previous),
			Note:           note,
		},
	})
}

// UpdateNote replaces the admin note. An empty note clears it.
func (s *TicketService) UpdateNote(ctx context.Context, actor events.Actor, ticketID, note string) (*domain.Ticket, error) {
	note = strings.TrimSpace(note)
	return s.mutateNote(ctx, actor, ticketID, note, func(*string) *string {
		if note == "" {
			return nil
		}
		return &note
	})
}

// AppendNote adds a timestamped block below the existing note.
func (s *TicketService) AppendNote(ctx context.Context, actor events.Actor, ticketID, text string) (*domain.Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note text is required", map[string]any{"note": "required"})
	}
	stamp := s.now().Format("02/01/2006 15:04")
	block := "[" + stamp + " " + string(actor.Type) + "] " + text
	return s.mutateNote(ctx, actor, ticketID, text, func(current *string) *string {
		if current == nil || strings.TrimSpace(*current) == "" {
			return &block
		}
		joined := *current + "\n\n" + block
		return &joined
	})
}

func (s *TicketService) mutateNote(ctx context.Context, actor events.Actor, ticketID, eventNote string, next func(*string) *string) (*domain.Ticket, error) {
	if err := checkTicketID(ticketID); err != nil {
		return nil, err
	}
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		ticket.Note = next(ticket.Note)
		ticket.UpdatedAt = maxTime(s.now(), ticket.UpdatedAt)
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketUpdatedPayload{
			TicketSnapshot: events.SnapshotOf(ticket),
			Kind:           events.UpdateNote,
			Note:           eventNote,
		},
	})
	return ticket, nil
}

// Delete removes the ticket together with its history.
func (s *TicketService) Delete(ctx context.Context, actor events.Actor, ticketID string) error {
	if err := checkTicketID(ticketID); err != nil {
		return err
	}
	var externalID *int64
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		externalID = ticket.ExternalID
		return repos.Tickets.Delete(ctx, ticketID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.Int64p("external_id", externalID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    actor,
		Payload:  events.TicketDeletedPayload{ID: ticketID},
	})
	return nil
}

// Acknowledge marks the owner notification as read. It reports whether the
// flag changed, so repeated calls are harmless.
func (s *TicketService) Acknowledge(ctx context.Context, ticketID, userID string) (bool, error) {
	if err := checkTicketID(ticketID); err != nil {
		return false, err
	}
	var flipped bool
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		if ticket.OwnerID != userID {
			return apperrors.NewForbidden("ticket belongs to another user")
		}
		if ticket.Notified {
			return nil
		}
		ticket.Notified = true
		flipped = true
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}

// LinkExternal records the GLPI id of a ticket. It emits no event.
func (s *TicketService) LinkExternal(ctx context.Context, ticketID string, externalID int64) error {
	if err := checkTicketID(ticketID); err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		ticket.ExternalID = &externalID
		return repos.Tickets.Update(ctx, ticket)
	})
}

// FindByExternalID resolves a GLPI id to the local ticket.
func (s *TicketService) FindByExternalID(ctx context.Context, externalID int64) (*domain.Ticket, error) {
	ticket, err := s.store.Repositories().Tickets.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"external_id": externalID})
		}
		return nil, err
	}
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if err := checkTicketID(ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.store.Repositories().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketLookupError(err, ticketID)
	}
	return ticket, nil
}

// ListTickets returns a filtered page, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) (TicketPage, error) {
	repoFilter := repository.TicketFilter{
		OwnerID:     filter.OwnerID,
		Sector:      filter.Sector,
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	tickets := s.store.Repositories().Tickets
	items, err := tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return TicketPage{}, err
	}
	total, err := tickets.Count(ctx, repoFilter)
	if err != nil {
		return TicketPage{}, err
	}
	return TicketPage{Items: items, Total: total}, nil
}

// ListHistory returns the ledger of a ticket ordered by (created_at, seq).
// Unknown and deleted tickets have an empty history.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if checkTicketID(ticketID) != nil {
		return []domain.TicketHistory{}, nil
	}
	return s.store.Repositories().History.ListByTicket(ctx, ticketID)
}

// ledgerTime keeps history timestamps non-decreasing per ticket even when the
// wall clock steps backwards.
func (s *TicketService) ledgerTime(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket) (time.Time, error) {
	latest, err := repos.History.LatestAt(ctx, ticket.ID)
	if err != nil {
		return time.Time{}, err
	}
	at := maxTime(s.now(), latest)
	return maxTime(at, ticket.CreatedAt), nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event not published",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}

func ticketLookupError(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return err
}

// checkTicketID rejects malformed ids before they reach the uuid column.
func checkTicketID(ticketID string) error {
	if _, err := uuid.Parse(ticketID); err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
