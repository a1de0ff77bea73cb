package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nicopel-ti/helpdesk/internal/api/dto"
	"github.com/nicopel-ti/helpdesk/internal/service"
)

// DashboardHandler serves the admin charts.
type DashboardHandler struct {
	stats   *service.StatsService
	metrics *service.MetricsService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(stats *service.StatsService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{stats: stats, metrics: metrics}
}

// Charts GET /api/graficos.
func (h *DashboardHandler) Charts(c *fiber.Ctx) error {
	dashboard, err := h.stats.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChartsResponse{
		ByStatus:           dashboard.ByStatus,
		BySector:           dashboard.BySector,
		AvgResolutionHours: dashboard.AvgResolutionHours,
	}})
}

// StatusDurations GET /api/metricas/tempo-por-status.
func (h *DashboardHandler) StatusDurations(c *fiber.Ctx) error {
	hours, err := h.metrics.AverageTimePerStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusDurationResponse{Hours: hours}})
}
