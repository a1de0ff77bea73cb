package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nicopel-ti/helpdesk/internal/api/dto"
	"github.com/nicopel-ti/helpdesk/internal/service"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// Grafana simple-JSON targets.
const (
	TargetByStatus       = "chamados_por_status"
	TargetBySector       = "chamados_por_setor"
	TargetAvgResolution  = "tempo_medio_resolucao_geral"
	TargetDailyCreations = "evolucao_criacao_chamados"
)

var grafanaMetrics = []dto.GrafanaMetric{
	{Value: TargetByStatus, Label: "Contagem de Chamados por Status"},
	{Value: TargetBySector, Label: "Contagem de Chamados por Setor"},
	{Value: TargetAvgResolution, Label: "Tempo Médio de Resolução (Geral)"},
	{Value: TargetDailyCreations, Label: "Evolução de Chamados Criados (Série Temporal)"},
}

// GrafanaHandler implements the simple-JSON datasource protocol.
type GrafanaHandler struct {
	stats *service.StatsService
}

// NewGrafanaHandler constructs handler.
func NewGrafanaHandler(stats *service.StatsService) *GrafanaHandler {
	return &GrafanaHandler{stats: stats}
}

// Ping GET /api/grafana/.
func (h *GrafanaHandler) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Search POST /api/grafana/search.
func (h *GrafanaHandler) Search(c *fiber.Ctx) error {
	return c.JSON(grafanaMetrics)
}

// Query POST /api/grafana/query. Every requested target yields one entry.
func (h *GrafanaHandler) Query(c *fiber.Ctx) error {
	var req dto.GrafanaQueryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	response := make([]any, 0, len(req.Targets))
	for _, target := range req.Targets {
		switch target.Target {
		case TargetByStatus:
			counts, err := h.stats.CountByStatus(ctx)
			if err != nil {
				return err
			}
			rows := make([][]any, 0, len(counts))
			for status, total := range counts {
				rows = append(rows, []any{status.Label(), total})
			}
			response = append(response, countTable("Status", rows))
		case TargetBySector:
			counts, err := h.stats.CountBySector(ctx)
			if err != nil {
				return err
			}
			rows := make([][]any, 0, len(counts))
			for sector, total := range counts {
				rows = append(rows, []any{sector, total})
			}
			response = append(response, countTable("Setor", rows))
		case TargetAvgResolution:
			hours, err := h.stats.AverageResolutionHours(ctx)
			if err != nil {
				return err
			}
			response = append(response, dto.GrafanaTable{
				Type: "table",
				Columns: []dto.GrafanaColumn{
					{Text: "Métrica", Type: "string"},
					{Text: "Valor (horas)", Type: "number"},
				},
				Rows: [][]any{{"Tempo Médio de Resolução", hours}},
			})
		case TargetDailyCreations:
			from, to := grafanaRange(req)
			days, err := h.stats.DailyCreated(ctx, from, to)
			if err != nil {
				return err
			}
			points := make([][2]int64, 0, len(days))
			for _, day := range days {
				points = append(points, [2]int64{int64(day.Count), day.Day.UnixMilli()})
			}
			response = append(response, dto.GrafanaSeries{Target: "Chamados Criados", Datapoints: points})
		default:
			return apperrors.NewValidationError("unknown target", map[string]any{"target": target.Target})
		}
	}
	return c.JSON(response)
}

func countTable(label string, rows [][]any) dto.GrafanaTable {
	return dto.GrafanaTable{
		Type: "table",
		Columns: []dto.GrafanaColumn{
			{Text: label, Type: "string"},
			{Text: "Total", Type: "number"},
		},
		Rows: rows,
	}
}

// grafanaRange reads the dashboard time range; unparsable bounds are open.
func grafanaRange(req dto.GrafanaQueryRequest) (from, to time.Time) {
	if t, err := time.Parse(time.RFC3339, req.Range.From); err == nil {
		from = t
	}
	if t, err := time.Parse(time.RFC3339, req.Range.To); err == nil {
		to = t
	}
	return from, to
}
