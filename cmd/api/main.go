package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/nucleushq/ticket-engine/internal/api/http"
	"github.com/nucleushq/ticket-engine/internal/api/http/handlers"
	"github.com/nucleushq/ticket-engine/internal/auth"
	"github.com/nucleushq/ticket-engine/internal/config"
	"github.com/nucleushq/ticket-engine/internal/events"
	"github.com/nucleushq/ticket-engine/internal/observability"
	"github.com/nucleushq/ticket-engine/internal/persistence"
	"github.com/nucleushq/ticket-engine/internal/repository"
	"github.com/nucleushq/ticket-engine/internal/service"
	"github.com/nucleushq/ticket-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	ticketRepo := repository.NewTicketRepository(pg)
	commentRepo := repository.NewCommentRepository(pg)
	activityRepo := repository.NewActivityRepository(pg)
	notificationRepo := repository.NewNotificationRepository(pg)
	employeeRepo := repository.NewEmployeeRepository(pg)

	recorder := service.NewActivityRecorder(activityRepo)
	unreadCache := persistence.NewUnreadCache(redis)
	notifier := service.NewNotificationService(notificationRepo, unreadCache, logger, cfg.Notification)

	dispatcher := events.NewInMemoryDispatcher()
	relay := worker.NewEventRelay(logger, cfg.Notification)
	worker.Register(dispatcher, relay)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		EmployeeRepo: employeeRepo,
		Recorder:     recorder,
		Notifier:     notifier,
		Tx:           pg,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo:      commentRepo,
		TicketRepo:       ticketRepo,
		EmployeeRepo:     employeeRepo,
		NotificationRepo: notificationRepo,
		Recorder:         recorder,
		Notifier:         notifier,
		Tx:               pg,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens, employeeRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, recorder),
		Comments:       handlers.NewCommentsHandler(commentService),
		Notifications:  handlers.NewNotificationsHandler(notifier),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
