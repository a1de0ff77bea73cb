package dto

import (
	"time"

	"github.com/nicopel-ti/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Requester   string  `json:"requester" validate:"required,max=120"`
	Sector      string  `json:"sector" validate:"required,max=80"`
	Description string  `json:"description" validate:"required,max=4000"`
	AnyDesk     *string `json:"anydesk,omitempty" validate:"omitempty,max=40"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateTicketRequest is the admin edit. Status accepts canonical codes and
// pt-BR labels; note replaces the admin note when present.
type UpdateTicketRequest struct {
	Status *string `json:"status,omitempty"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=4000"`
}

// AppendNoteRequest adds a timestamped block to the admin note.
type AppendNoteRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// TicketResponse is the public ticket representation.
type TicketResponse struct {
	ID          string              `json:"id"`
	Requester   string              `json:"requester"`
	Sector      string              `json:"sector"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
	AnyDesk     *string             `json:"anydesk,omitempty"`
	ImageURL    *string             `json:"image_url,omitempty"`
	Note        *string             `json:"note,omitempty"`
	OwnerID     string              `json:"owner_id"`
	ExternalID  *int64              `json:"external_id,omitempty"`
	Notified    bool                `json:"notified"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Items    []TicketResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// NotificationResponse is a ticket awaiting the owner's acknowledgement.
type NotificationResponse struct {
	ID          string              `json:"id"`
	Requester   string              `json:"requester"`
	Sector      string              `json:"sector"`
	Status      domain.TicketStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
}

// TicketHistoryResponse is one ledger entry.
type TicketHistoryResponse struct {
	ID             string               `json:"id"`
	PreviousStatus *domain.TicketStatus `json:"previous_status"`
	NewStatus      domain.TicketStatus  `json:"new_status"`
	Note           string               `json:"note"`
	ChangedByID    *string              `json:"changed_by_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Requester:   t.Requester,
		Sector:      t.Sector,
		Description: t.Description,
		Status:      t.Status,
		StatusLabel: t.Status.Label(),
		AnyDesk:     t.AnyDesk,
		ImageURL:    t.ImageURL,
		Note:        t.Note,
		OwnerID:     t.OwnerID,
		ExternalID:  t.ExternalID,
		Notified:    t.Notified,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	resp := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, NewTicketResponse(&tickets[i]))
	}
	return resp
}

// NewNotificationResponses maps tickets to notifications.
func NewNotificationResponses(tickets []domain.Ticket) []NotificationResponse {
	resp := make([]NotificationResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, NotificationResponse{
			ID:          t.ID,
			Requester:   t.Requester,
			Sector:      t.Sector,
			Status:      t.Status,
			StatusLabel: t.Status.Label(),
		})
	}
	return resp
}

// NewHistoryResponses maps ledger entries, preserving order.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	resp := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, TicketHistoryResponse{
			ID:             entry.ID,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			Note:           entry.Note,
			ChangedByID:    entry.ChangedByID,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return resp
}
