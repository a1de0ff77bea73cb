package events

import (
	"time"

	"github.com/nicopel-ti/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket.created"
	EventTicketUpdated EventType = "ticket.updated"
	EventTicketDeleted EventType = "ticket.deleted"
)

// ActorType identifies who caused a change.
type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorAdmin  ActorType = "ADMIN"
	ActorGLPI   ActorType = "GLPI"
	ActorSystem ActorType = "SYSTEM"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   ActorType `json:"type"`
	UserID *string   `json:"user_id,omitempty"`
}

// ActorFromUser derives the actor for an authenticated principal.
func ActorFromUser(user *domain.User) Actor {
	if user == nil {
		return Actor{Type: ActorSystem}
	}
	id := user.ID
	if user.IsAdmin() {
		return Actor{Type: ActorAdmin, UserID: &id}
	}
	return Actor{Type: ActorUser, UserID: &id}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketSnapshot is the payload of ticket.created and the base of ticket.updated.
type TicketSnapshot struct {
	ID          string              `json:"id"`
	Requester   string              `json:"requester"`
	Sector      string              `json:"sector"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
	OwnerID     string              `json:"owner_id"`
	ExternalID  *int64              `json:"external_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// SnapshotOf copies the public fields of ticket.
func SnapshotOf(ticket *domain.Ticket) TicketSnapshot {
	return TicketSnapshot{
		ID:          ticket.ID,
		Requester:   ticket.Requester,
		Sector:      ticket.Sector,
		Description: ticket.Description,
		Status:      ticket.Status,
		StatusLabel: ticket.Status.Label(),
		OwnerID:     ticket.OwnerID,
		ExternalID:  ticket.ExternalID,
		CreatedAt:   ticket.CreatedAt,
		CompletedAt: ticket.CompletedAt,
	}
}

// UpdateKind distinguishes status transitions from note edits.
type UpdateKind string

const (
	UpdateStatus UpdateKind = "status"
	UpdateNote   UpdateKind = "note"
)

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	TicketSnapshot
	Kind           UpdateKind           `json:"kind"`
	PreviousStatus *domain.TicketStatus `json:"previous_status,omitempty"`
	Note           string               `json:"note,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	ID string `json:"id"`
}
