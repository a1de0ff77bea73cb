package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

var statusLabels = map[TicketStatus]string{
	TicketStatusOpen:       "Aberto",
	TicketStatusInProgress: "Em andamento",
	TicketStatusPending:    "Pendente",
	TicketStatusResolved:   "Resolvido",
	TicketStatusClosed:     "Fechado",
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusOpen,
		TicketStatusInProgress,
		TicketStatusPending,
		TicketStatusResolved,
		TicketStatusClosed,
	}
}

// Valid reports whether s is one of the canonical statuses.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the pt-BR label shown to users.
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsResolvedFamily groups the terminal statuses that count as resolution.
func (s TicketStatus) IsResolvedFamily() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// NotifiesOwner reports whether entering s must (re)notify the ticket owner.
func (s TicketStatus) NotifiesOwner() bool {
	return s == TicketStatusPending || s.IsResolvedFamily()
}

// NotifiableStatuses lists the statuses surfaced by owner notifications.
func NotifiableStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusPending, TicketStatusResolved, TicketStatusClosed}
}

// Ticket is the aggregate for support requests ("chamados").
type Ticket struct {
	ID          string
	Requester   string
	Sector      string
	Description string
	Status      TicketStatus
	AnyDesk     *string
	ImageURL    *string
	Note        *string
	OwnerID     string
	ExternalID  *int64
	Notified    bool
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// ApplyStatus moves the ticket to next at the given instant and reports the
// previous status. It returns changed=false, leaving the ticket untouched,
// when next equals the current status.
//
// StartedAt and CompletedAt are first-occurrence-wins. StartedAt is not
// stamped after CompletedAt so CreatedAt <= StartedAt <= CompletedAt holds.
func (t *Ticket) ApplyStatus(next TicketStatus, at time.Time) (previous TicketStatus, changed bool) {
	previous = t.Status
	if next == t.Status {
		return previous, false
	}

	t.Status = next
	if next == TicketStatusInProgress && t.StartedAt == nil && t.CompletedAt == nil {
		started := at
		t.StartedAt = &started
	}
	if next.IsResolvedFamily() && t.CompletedAt == nil {
		completed := at
		t.CompletedAt = &completed
	}
	if next.NotifiesOwner() {
		t.Notified = false
	}
	t.UpdatedAt = at
	return previous, true
}
