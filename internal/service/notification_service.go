package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/events"
	"github.com/nicopel-ti/helpdesk/internal/mail"
	"github.com/nicopel-ti/helpdesk/internal/repository"
)

// NotificationService answers owner notification polls and e-mails owners
// when their tickets reach PENDING or the resolved family.
type NotificationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	mailer     mail.Sender
	logger     *zap.Logger
}

// NewNotificationService creates the service. mailer may be nil, in which
// case only the polling side is active.
func NewNotificationService(store repository.Store, dispatcher events.Dispatcher, mailer mail.Sender, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:      store,
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
	}
}

// PendingNotificationsFor lists the user's tickets in a notifiable status
// that have not been acknowledged, newest first.
func (n *NotificationService) PendingNotificationsFor(ctx context.Context, userID string) ([]domain.Ticket, error) {
	notified := false
	return n.store.Repositories().Tickets.ListWithFilter(ctx, repository.TicketFilter{
		OwnerID:  &userID,
		Statuses: domain.NotifiableStatuses(),
		Notified: &notified,
	})
}

// RegisterHandlers subscribes the e-mail notifier to ticket updates.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.mailer == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok || payload.Kind != events.UpdateStatus || !payload.Status.NotifiesOwner() {
		return nil
	}

	owner, err := n.store.Repositories().Users.GetByID(ctx, payload.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner %s: %w", payload.OwnerID, err)
	}
	if owner.Email == "" {
		return nil
	}

	notice := mail.StatusNotice{
		To:          owner.Email,
		OwnerName:   owner.Name,
		TicketID:    payload.ID,
		Requester:   payload.Requester,
		Sector:      payload.Sector,
		StatusLabel: payload.Status.Label(),
		Note:        payload.Note,
	}
	if err := n.mailer.SendStatusNotice(notice); err != nil {
		return err
	}
	n.logger.Info("owner notified by e-mail",
		zap.String("ticket_id", payload.ID),
		zap.String("status", string(payload.Status)),
	)
	return nil
}
