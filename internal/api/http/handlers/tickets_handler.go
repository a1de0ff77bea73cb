package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nicopel-ti/helpdesk/internal/api/dto"
	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/service"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// TicketsHandler serves ticket endpoints for owners and admins.
type TicketsHandler struct {
	tickets *service.TicketService
	metrics *service.MetricsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, metrics *service.MetricsService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, metrics: metrics}
}

// Create POST /api/chamados.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), actorOf(principal), service.TicketCreateInput{
		Requester:   req.Requester,
		Sector:      req.Sector,
		Description: req.Description,
		AnyDesk:     req.AnyDesk,
		ImageURL:    req.ImageURL,
		OwnerID:     principal.User.ID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListMine GET /api/chamados/mine.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	filter, page, pageSize, err := listFilter(c)
	if err != nil {
		return err
	}
	filter.OwnerID = &principal.User.ID
	return h.respondPage(c, filter, page, pageSize)
}

// List GET /api/chamados.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter, page, pageSize, err := listFilter(c)
	if err != nil {
		return err
	}
	if owner := c.Query("owner_id"); owner != "" {
		filter.OwnerID = &owner
	}
	return h.respondPage(c, filter, page, pageSize)
}

func (h *TicketsHandler) respondPage(c *fiber.Ctx, filter service.TicketListFilter, page, pageSize int) error {
	result, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    dto.NewTicketResponses(result.Items),
		Total:    result.Total,
		Page:     page,
		PageSize: pageSize,
	}})
}

// Get GET /api/chamados/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), paramID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Update PUT /api/chamados/:id. Status and note are applied together; a
// status change without a note is annotated as a panel change.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	input := service.TicketUpdateInput{Note: req.Note}
	if req.Status != nil {
		status, err := domain.ParseTicketStatus(*req.Status)
		if err != nil {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": err.Error()})
		}
		input.Status = &status
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), actorOf(principal), paramID(c), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AppendNote POST /api/chamados/:id/notas.
func (h *TicketsHandler) AppendNote(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.AppendNoteRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.AppendNote(c.UserContext(), actorOf(principal), paramID(c), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Delete DELETE /api/chamados/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.UserContext(), actorOf(principal), paramID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History GET /api/chamados/:id/historico.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.tickets.ListHistory(c.UserContext(), paramID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

// Metrics GET /api/chamados/:id/metricas.
func (h *TicketsHandler) Metrics(c *fiber.Ctx) error {
	metrics, err := h.metrics.TicketMetrics(c.UserContext(), paramID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": metrics})
}

func listFilter(c *fiber.Ctx) (service.TicketListFilter, int, int, error) {
	page, pageSize := pagination(c)
	filter := service.TicketListFilter{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	for _, raw := range splitCSV(c.Query("status")) {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return filter, 0, 0, apperrors.NewValidationError("invalid status filter", map[string]any{"status": err.Error()})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if sector := c.Query("sector"); sector != "" {
		filter.Sector = &sector
	}
	from, err := parseTime(c.Query("created_from"))
	if err != nil {
		return filter, 0, 0, apperrors.NewValidationError("invalid created_from", map[string]any{"created_from": "expected RFC3339 or YYYY-MM-DD"})
	}
	to, err := parseTime(c.Query("created_to"))
	if err != nil {
		return filter, 0, 0, apperrors.NewValidationError("invalid created_to", map[string]any{"created_to": "expected RFC3339 or YYYY-MM-DD"})
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, page, pageSize, nil
}
