package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/nicopel-ti/helpdesk/internal/api/http/handlers"
	"github.com/nicopel-ti/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Dashboard      *handlers.DashboardHandler
	Grafana        *handlers.GrafanaHandler
	Chatbot        *handlers.ChatbotHandler
	Events         *handlers.EventsHandler
	Webhook        *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        nethttp.Handler
}

// RegisterRoutes wires HTTP routes. Guards are attached per route so that
// unauthenticated endpoints under /api stay reachable.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api")
	api.Post("/integration/glpi-webhook", cfg.Webhook.Receive)

	authn := cfg.AuthMiddleware.Handle
	user := auth.RequireAnyRole()
	admin := auth.RequireAdmin()

	api.Post("/chamados", authn, user, cfg.Tickets.Create)
	api.Get("/chamados/mine", authn, user, cfg.Tickets.ListMine)
	api.Get("/notificacoes", authn, user, cfg.Notifications.List)
	api.Post("/notificacoes/:id/marcar", authn, user, cfg.Notifications.Acknowledge)
	api.Post("/chatbot", authn, user, cfg.Chatbot.Ask)

	api.Get("/chamados", authn, admin, cfg.Tickets.List)
	api.Get("/chamados/:id", authn, admin, cfg.Tickets.Get)
	api.Put("/chamados/:id", authn, admin, cfg.Tickets.Update)
	api.Delete("/chamados/:id", authn, admin, cfg.Tickets.Delete)
	api.Post("/chamados/:id/notas", authn, admin, cfg.Tickets.AppendNote)
	api.Get("/chamados/:id/historico", authn, admin, cfg.Tickets.History)
	api.Get("/chamados/:id/metricas", authn, admin, cfg.Tickets.Metrics)
	api.Get("/metricas/tempo-por-status", authn, admin, cfg.Dashboard.StatusDurations)
	api.Get("/graficos", authn, admin, cfg.Dashboard.Charts)
	api.Get("/events", authn, admin, cfg.Events.Stream)

	api.Get("/grafana/", authn, admin, cfg.Grafana.Ping)
	api.Post("/grafana/search", authn, admin, cfg.Grafana.Search)
	api.Post("/grafana/query", authn, admin, cfg.Grafana.Query)
}
