package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/nicopel-ti/helpdesk/internal/api/http"
	"github.com/nicopel-ti/helpdesk/internal/api/http/handlers"
	"github.com/nicopel-ti/helpdesk/internal/auth"
	"github.com/nicopel-ti/helpdesk/internal/chatbot"
	"github.com/nicopel-ti/helpdesk/internal/config"
	"github.com/nicopel-ti/helpdesk/internal/events"
	"github.com/nicopel-ti/helpdesk/internal/glpi"
	"github.com/nicopel-ti/helpdesk/internal/mail"
	"github.com/nicopel-ti/helpdesk/internal/observability"
	"github.com/nicopel-ti/helpdesk/internal/persistence"
	"github.com/nicopel-ti/helpdesk/internal/realtime"
	"github.com/nicopel-ti/helpdesk/internal/repository"
	"github.com/nicopel-ti/helpdesk/internal/service"
	"github.com/nicopel-ti/helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	store := newStore(pg)
	dispatcher := events.NewInMemoryDispatcher(logger,
		events.WithHandlerTimeout(cfg.Events.HandlerTimeout()),
		events.WithObserver(func(t events.EventType) { metrics.RecordEvent(string(t)) }),
	)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(store, dispatcher, newMailer(cfg.Notification, logger), logger)
	syncService := service.NewSyncService(ticketService, newGLPIGateway(cfg.GLPI, logger), dispatcher, logger)
	metricsService := service.NewMetricsService(store)
	statsService := service.NewStatsService(store)
	chatService := service.NewChatService(
		newCompleter(cfg.Chatbot),
		newSessionStore(cfg.Chatbot, redis),
		cfg.Chatbot.SystemPrompt,
		logger,
	)

	hub := realtime.NewHub(32, logger)
	subscribers := worker.Subscribers{
		Notifications: notificationService,
		Sync:          syncService,
		Hub:           hub,
	}
	if redis.Usable() {
		subscribers.Relay = realtime.NewRedisRelay(redis.Client, cfg.Redis.EventsChannel, hub, logger)
	}
	workerCtx, stopWorkers := context.WithCancel(ctx)
	waitWorkers := worker.StartEventWorkers(workerCtx, dispatcher, subscribers, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, store.Repositories().Users)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, metricsService),
		Notifications:  handlers.NewNotificationsHandler(notificationService, ticketService),
		Dashboard:      handlers.NewDashboardHandler(statsService, metricsService),
		Grafana:        handlers.NewGrafanaHandler(statsService),
		Chatbot:        handlers.NewChatbotHandler(chatService),
		Events:         handlers.NewEventsHandler(hub, logger),
		Webhook:        handlers.NewWebhookHandler(syncService, cfg.GLPI.WebhookSecret),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics.Handler(),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	if err := waitForShutdown(logger, listenErr); err != nil {
		logger.Error("fiber listen", zap.Error(err))
	}

	// Streams stay open until the hub lets go of them.
	hub.Close()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	dispatcher.Close()
	stopWorkers()
	waitWorkers()
	logger.Info("shutdown complete")
	return nil
}

func newStore(pg *persistence.Postgres) repository.Store {
	if pg.Enabled() {
		return repository.NewPostgresStore(pg.Pool)
	}
	return repository.NewMemoryStore()
}

func newMailer(cfg config.NotificationConfig, logger *zap.Logger) mail.Sender {
	if !cfg.Enabled() {
		logger.Info("smtp not configured; owner e-mails disabled")
		return nil
	}
	return mail.NewSMTPSender(cfg)
}

func newGLPIGateway(cfg config.GLPIConfig, logger *zap.Logger) service.GLPIGateway {
	if !cfg.Enabled {
		return nil
	}
	return glpi.NewClient(cfg, logger)
}

func newCompleter(cfg config.ChatbotConfig) service.Completer {
	client := chatbot.NewCompletionClient(cfg)
	if client == nil {
		return nil
	}
	return client
}

func newSessionStore(cfg config.ChatbotConfig, redis *persistence.Redis) chatbot.SessionStore {
	maxMessages := 2 * cfg.MaxTurns
	ttl := time.Duration(cfg.SessionTTLMin) * time.Minute
	if redis.Usable() {
		return chatbot.NewRedisSessionStore(redis.Client, maxMessages, ttl)
	}
	return chatbot.NewMemorySessionStore(maxMessages, cfg.MaxSessions, ttl)
}

func waitForShutdown(logger *zap.Logger, listenErr <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		return nil
	case err := <-listenErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
