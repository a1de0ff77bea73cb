package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nicopel-ti/helpdesk/internal/api/dto"
	"github.com/nicopel-ti/helpdesk/internal/service"
)

// NotificationsHandler lets owners see and acknowledge status notices.
type NotificationsHandler struct {
	notifications *service.NotificationService
	tickets       *service.TicketService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService, tickets *service.TicketService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, tickets: tickets}
}

// List GET /api/notificacoes.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	tickets, err := h.notifications.PendingNotificationsFor(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponses(tickets)})
}

// Acknowledge POST /api/notificacoes/:id/marcar.
func (h *NotificationsHandler) Acknowledge(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	changed, err := h.tickets.Acknowledge(c.UserContext(), paramID(c), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"acknowledged": true, "changed": changed}})
}
