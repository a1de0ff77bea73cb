package domain

import "time"

// CreationNote annotates the synthetic history entry written on ticket creation.
const CreationNote = "Chamado criado"

// PanelStatusNote annotates a status change made from the admin panel
// without a note.
const PanelStatusNote = "Status alterado via painel."

// TicketHistory is an immutable status transition entry.
type TicketHistory struct {
	ID             string
	TicketID       string
	Seq            int64
	PreviousStatus *TicketStatus
	NewStatus      TicketStatus
	Note           string
	ChangedByID    *string
	CreatedAt      time.Time
}

// StatusPtr returns a pointer to s, handy for PreviousStatus.
func StatusPtr(s TicketStatus) *TicketStatus {
	return &s
}
