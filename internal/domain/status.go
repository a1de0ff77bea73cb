package domain

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// statusAliases maps folded labels (lower case, no accents) to statuses.
// Older panels used several labels for the same state.
var statusAliases = map[string]TicketStatus{
	"open":           TicketStatusOpen,
	"aberto":         TicketStatusOpen,
	"novo":           TicketStatusOpen,
	"in_progress":    TicketStatusInProgress,
	"in progress":    TicketStatusInProgress,
	"em andamento":   TicketStatusInProgress,
	"iniciado":       TicketStatusInProgress,
	"em atendimento": TicketStatusInProgress,
	"pending":        TicketStatusPending,
	"pendente":       TicketStatusPending,
	"resolved":       TicketStatusResolved,
	"resolvido":      TicketStatusResolved,
	"finalizado":     TicketStatusResolved,
	"concluido":      TicketStatusResolved,
	"solucionado":    TicketStatusResolved,
	"closed":         TicketStatusClosed,
	"fechado":        TicketStatusClosed,
}

// ParseTicketStatus accepts canonical codes and the pt-BR labels, ignoring
// case, accents and surrounding whitespace.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	key := foldLabel(raw)
	if key == "" {
		return "", fmt.Errorf("empty status")
	}
	if status, ok := statusAliases[key]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

func foldLabel(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, raw)
	if err != nil {
		folded = raw
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
