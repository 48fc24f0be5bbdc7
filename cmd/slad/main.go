package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/greenwhite/servicedesk-sla/internal/api/http"
	"github.com/greenwhite/servicedesk-sla/internal/api/http/handlers"
	"github.com/greenwhite/servicedesk-sla/internal/auth"
	"github.com/greenwhite/servicedesk-sla/internal/config"
	"github.com/greenwhite/servicedesk-sla/internal/events"
	"github.com/greenwhite/servicedesk-sla/internal/observability"
	"github.com/greenwhite/servicedesk-sla/internal/persistence"
	"github.com/greenwhite/servicedesk-sla/internal/repository"
	"github.com/greenwhite/servicedesk-sla/internal/service"
	"github.com/greenwhite/servicedesk-sla/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	calendarRepo := repository.NewCalendarRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	policyService := service.NewPolicyService(service.PolicyDependencies{
		PolicyRepo:   policyRepo,
		CalendarRepo: calendarRepo,
		Logger:       logger,
	})
	monitorService := service.NewMonitorService(service.MonitorDependencies{
		TicketRepo:       ticketRepo,
		Resolver:         policyService,
		Dispatcher:       dispatcher,
		Cache:            persistence.NewMetricsCache(redis, cfg.Sla.MetricsCacheTTL(), logger),
		Logger:           logger,
		WarningThreshold: cfg.Sla.WarningThreshold,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo: ticketRepo,
		PolicyRepo: policyRepo,
		TeamRepo:   teamRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, userRepo, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	slaWorker := worker.NewSlaWorker(ticketRepo, monitorService, escalationService, metrics, logger, cfg.Sla)
	slaWorker.Start(ctx)
	slaWorker.RunCycle(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.ServiceTokenSecret)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	slaHandler := handlers.NewSlaHandler(policyRepo, calendarRepo, monitorService, cfg.Sla.ApproachWindowMinutes)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: healthHandler,
		Sla:    slaHandler,
		Tokens: tokens,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
