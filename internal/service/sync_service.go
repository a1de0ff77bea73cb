package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/events"
	"github.com/nicopel-ti/helpdesk/internal/glpi"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// GLPI webhook event names.
const (
	WebhookTicketUpdate = "ticket_update"
	WebhookFollowupAdd  = "followup_add"
)

const glpiStatusNote = "Atualizado via GLPI"

// GLPIGateway is the outbound surface of the GLPI REST client.
type GLPIGateway interface {
	CreateTicket(ctx context.Context, in glpi.TicketInput) (int64, error)
	UpdateStatus(ctx context.Context, ticketID int64, status int) error
	AddFollowup(ctx context.Context, ticketID int64, content string) error
}

// WebhookPayload is the body GLPI posts to the integration endpoint.
type WebhookPayload struct {
	Event  string `json:"event"`
	Ticket struct {
		ID     int64 `json:"id"`
		Status int   `json:"status"`
	} `json:"ticket"`
	Followup *struct {
		Content     string `json:"content"`
		ContentText string `json:"content_text"`
	} `json:"followup,omitempty"`
}

// WebhookOutcome tells the caller what happened to a webhook delivery.
type WebhookOutcome string

const (
	WebhookApplied WebhookOutcome = "applied"
	WebhookIgnored WebhookOutcome = "ignored"
)

// SyncService relays ticket changes to GLPI and applies GLPI webhooks.
type SyncService struct {
	tickets    *TicketService
	gateway    GLPIGateway
	dispatcher events.Dispatcher
	sanitizer  *bluemonday.Policy
	logger     *zap.Logger
}

// NewSyncService wires the integration. gateway may be nil when outbound
// sync is disabled; inbound webhooks still work.
func NewSyncService(tickets *TicketService, gateway GLPIGateway, dispatcher events.Dispatcher, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		tickets:    tickets,
		gateway:    gateway,
		dispatcher: dispatcher,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With(zap.String("component", "glpi_sync")),
	}
}

// RegisterHandlers subscribes the outbound relay. Changes made by GLPI
// itself are not echoed back.
func (s *SyncService) RegisterHandlers() {
	if s.dispatcher == nil || s.gateway == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	s.dispatcher.Subscribe(events.EventTicketUpdated, s.handleTicketUpdated)
}

func (s *SyncService) handleTicketCreated(ctx context.Context, event events.Event) error {
	if event.Actor.Type == events.ActorGLPI {
		return nil
	}
	snapshot, ok := event.Payload.(events.TicketSnapshot)
	if !ok {
		return nil
	}
	ticket, err := s.tickets.GetTicket(ctx, snapshot.ID)
	if err != nil {
		return err
	}

	in := glpi.TicketInput{
		Requester:   ticket.Requester,
		Sector:      ticket.Sector,
		Description: ticket.Description,
	}
	if ticket.AnyDesk != nil {
		in.AnyDesk = *ticket.AnyDesk
	}
	if ticket.Note != nil {
		in.Note = *ticket.Note
	}

	externalID, err := s.gateway.CreateTicket(ctx, in)
	if err != nil {
		return fmt.Errorf("create glpi ticket: %w", err)
	}
	if err := s.tickets.LinkExternal(ctx, ticket.ID, externalID); err != nil {
		return fmt.Errorf("link glpi ticket %d: %w", externalID, err)
	}
	s.logger.Info("ticket linked to glpi", zap.String("ticket_id", ticket.ID), zap.Int64("glpi_id", externalID))
	return nil
}

func (s *SyncService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	if event.Actor.Type == events.ActorGLPI {
		return nil
	}
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok || payload.Kind != events.UpdateStatus {
		return nil
	}

	externalID := payload.ExternalID
	if externalID == nil {
		// the create relay may have linked the ticket after this snapshot was taken
		ticket, err := s.tickets.GetTicket(ctx, payload.ID)
		if err != nil {
			return err
		}
		externalID = ticket.ExternalID
	}
	if externalID == nil {
		return nil
	}

	if err := s.gateway.UpdateStatus(ctx, *externalID, glpi.FromLocal(payload.Status)); err != nil {
		return fmt.Errorf("update glpi status: %w", err)
	}
	if payload.Note != "" {
		if err := s.gateway.AddFollowup(ctx, *externalID, payload.Note); err != nil {
			return fmt.Errorf("add glpi followup: %w", err)
		}
	}
	return nil
}

// HandleWebhook applies a GLPI delivery. Deliveries for tickets that are not
// linked locally are acknowledged and ignored.
func (s *SyncService) HandleWebhook(ctx context.Context, payload WebhookPayload) (WebhookOutcome, error) {
	if payload.Event == "" {
		return "", apperrors.NewValidationError("invalid webhook payload", map[string]any{"event": "required"})
	}
	if payload.Ticket.ID == 0 {
		s.logger.Warn("glpi webhook without ticket id", zap.String("event", payload.Event))
		return WebhookIgnored, nil
	}

	ticket, err := s.tickets.FindByExternalID(ctx, payload.Ticket.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("glpi webhook for unknown ticket", zap.Int64("glpi_id", payload.Ticket.ID))
			return WebhookIgnored, nil
		}
		return "", err
	}

	actor := events.Actor{Type: events.ActorGLPI}
	switch payload.Event {
	case WebhookTicketUpdate:
		if payload.Ticket.Status == 0 {
			return WebhookIgnored, nil
		}
		status := glpi.ToLocal(payload.Ticket.Status)
		if _, err := s.tickets.Transition(ctx, actor, ticket.ID, status, glpiStatusNote); err != nil {
			return "", err
		}
	case WebhookFollowupAdd:
		text := s.followupText(payload)
		if text == "" {
			return WebhookIgnored, nil
		}
		if _, err := s.tickets.AppendNote(ctx, actor, ticket.ID, text); err != nil {
			return "", err
		}
	default:
		s.logger.Info("glpi webhook event ignored", zap.String("event", payload.Event))
		return WebhookIgnored, nil
	}

	s.logger.Info("glpi webhook applied",
		zap.String("event", payload.Event),
		zap.String("ticket_id", ticket.ID),
		zap.Int64("glpi_id", payload.Ticket.ID),
	)
	return WebhookApplied, nil
}

// followupText prefers GLPI's plain-text rendering and falls back to the
// HTML content stripped of markup.
func (s *SyncService) followupText(payload WebhookPayload) string {
	if payload.Followup == nil {
		return ""
	}
	if text := strings.TrimSpace(payload.Followup.ContentText); text != "" {
		return text
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(payload.Followup.Content))
}
