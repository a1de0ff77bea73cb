package glpi

import "github.com/nicopel-ti/helpdesk/internal/domain"

// GLPI ticket status ids.
const (
	StatusNew      = 1
	StatusAssigned = 2
	StatusPlanned  = 3
	StatusWaiting  = 4
	StatusSolved   = 5
	StatusClosed   = 6
)

var toLocal = map[int]domain.TicketStatus{
	StatusNew:      domain.TicketStatusOpen,
	StatusAssigned: domain.TicketStatusInProgress,
	StatusPlanned:  domain.TicketStatusInProgress,
	StatusWaiting:  domain.TicketStatusPending,
	StatusSolved:   domain.TicketStatusResolved,
	StatusClosed:   domain.TicketStatusClosed,
}

var fromLocal = map[domain.TicketStatus]int{
	domain.TicketStatusOpen:       StatusNew,
	domain.TicketStatusInProgress: StatusAssigned,
	domain.TicketStatusPending:    StatusWaiting,
	domain.TicketStatusResolved:   StatusSolved,
	domain.TicketStatusClosed:     StatusClosed,
}

// ToLocal maps a GLPI status id to the local status. Unknown ids map to
// IN_PROGRESS.
func ToLocal(id int) domain.TicketStatus {
	if status, ok := toLocal[id]; ok {
		return status
	}
	return domain.TicketStatusInProgress
}

// FromLocal maps a local status to its GLPI id, defaulting to "assigned".
func FromLocal(status domain.TicketStatus) int {
	if id, ok := fromLocal[status]; ok {
		return id
	}
	return StatusAssigned
}
