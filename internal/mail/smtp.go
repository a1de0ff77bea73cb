package mail

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/nicopel-ti/helpdesk/internal/config"
)

// StatusNotice tells a ticket owner that their ticket needs attention.
type StatusNotice struct {
	To          string
	OwnerName   string
	TicketID    string
	Requester   string
	Sector      string
	StatusLabel string
	Note        string
}

// Sender is the capability the notifier depends on.
type Sender interface {
	SendStatusNotice(notice StatusNotice) error
}

// SMTPSender delivers notices through an SMTP relay.
type SMTPSender struct {
	from         string
	dashboardURL string
	dialer       *gomail.Dialer
}

// NewSMTPSender builds a sender from the notification settings.
func NewSMTPSender(cfg config.NotificationConfig) *SMTPSender {
	return &SMTPSender{
		from:         cfg.EmailFrom,
		dashboardURL: strings.TrimRight(cfg.DashboardURL, "/"),
		dialer:       gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (s *SMTPSender) SendStatusNotice(notice StatusNotice) error {
	subject, plainBody, htmlBody := s.render(notice)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", notice.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) render(n StatusNotice) (subject, plainBody, htmlBody string) {
	link := s.dashboardURL + "/chamados/" + n.TicketID
	subject = fmt.Sprintf("Seu chamado está %s", strings.ToLower(n.StatusLabel))

	plainBody = fmt.Sprintf(`Olá, %s.

O chamado aberto para %s (setor %s) mudou para "%s".
%s
Acompanhe em: %s
`, n.OwnerName, n.Requester, n.Sector, n.StatusLabel, noteLine(n.Note), link)

	noteHTML := ""
	if n.Note != "" {
		noteHTML = "<p><strong>Observação:</strong> " + html.EscapeString(n.Note) + "</p>"
	}
	htmlBody = fmt.Sprintf(`
		<html>
		<body>
			<p>Olá, %s.</p>
			<p>O chamado aberto para %s (setor %s) mudou para <strong>%s</strong>.</p>
			%s
			<p><a href="%s">Ver chamado</a></p>
		</body>
		</html>
	`,
		html.EscapeString(n.OwnerName),
		html.EscapeString(n.Requester),
		html.EscapeString(n.Sector),
		html.EscapeString(n.StatusLabel),
		noteHTML,
		html.EscapeString(link),
	)
	return subject, plainBody, htmlBody
}

func noteLine(note string) string {
	if note == "" {
		return ""
	}
	return "Observação: " + note + "\n"
}
