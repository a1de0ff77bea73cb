package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketStatus(t *testing.T) {
	cases := map[string]TicketStatus{
		"OPEN":              TicketStatusOpen,
		"Aberto":            TicketStatusOpen,
		"Em andamento":      TicketStatusInProgress,
		"  em   ANDAMENTO ": TicketStatusInProgress,
		"Iniciado":          TicketStatusInProgress,
		"IN_PROGRESS":       TicketStatusInProgress,
		"Pendente":          TicketStatusPending,
		"Finalizado":        TicketStatusResolved,
		"Concluído":         TicketStatusResolved,
		"concluido":         TicketStatusResolved,
		"Resolvido":         TicketStatusResolved,
		"Fechado":           TicketStatusClosed,
		"CLOSED":            TicketStatusClosed,
	}
	for raw, want := range cases {
		got, err := ParseTicketStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseTicketStatus_Rejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "cancelado", "RESOLVED!"} {
		_, err := ParseTicketStatus(raw)
		assert.Error(t, err, raw)
	}
}
