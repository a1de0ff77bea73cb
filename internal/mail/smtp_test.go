package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicopel-ti/helpdesk/internal/config"
)

func TestRender_EscapesUserContent(t *testing.T) {
	sender := NewSMTPSender(config.NotificationConfig{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		EmailFrom:    "helpdesk@example.com",
		DashboardURL: "https://helpdesk.example.com/",
	})

	subject, plain, htmlBody := sender.render(StatusNotice{
		To:          "ana@example.com",
		OwnerName:   "Ana <script>",
		TicketID:    "abc",
		Requester:   "Ana",
		Sector:      "RH",
		StatusLabel: "Pendente",
		Note:        "aguardando <b>peça</b>",
	})

	assert.Equal(t, "Seu chamado está pendente", subject)
	assert.Contains(t, plain, "https://helpdesk.example.com/chamados/abc")
	assert.Contains(t, plain, "Observação: aguardando <b>peça</b>")
	assert.Contains(t, htmlBody, "Ana &lt;script&gt;")
	assert.NotContains(t, htmlBody, "<b>peça</b>")
}
