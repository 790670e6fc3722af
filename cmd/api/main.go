package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/brandpulse/crisis-service/internal/api/http"
	"github.com/brandpulse/crisis-service/internal/api/http/handlers"
	"github.com/brandpulse/crisis-service/internal/auth"
	"github.com/brandpulse/crisis-service/internal/config"
	"github.com/brandpulse/crisis-service/internal/events"
	"github.com/brandpulse/crisis-service/internal/observability"
	"github.com/brandpulse/crisis-service/internal/persistence"
	"github.com/brandpulse/crisis-service/internal/repository"
	"github.com/brandpulse/crisis-service/internal/scheduler"
	"github.com/brandpulse/crisis-service/internal/service"
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

	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Fatal("failed to init metrics", zap.Error(err))
	}

	pool := pg.PoolHandle()
	workspaceRepo := repository.NewWorkspaceRepository(pool)
	mentionRepo := repository.NewMentionRepository(pool)
	crisisRepo := repository.NewCrisisRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(cfg.Notification.WebhookURL, logger)
	notifications.Register(dispatcher)

	monitorService := service.NewMonitorService(cfg.Monitor, service.MonitorDependencies{
		MentionRepo: mentionRepo,
		CrisisRepo:  crisisRepo,
		Locks:       persistence.NewWorkspaceLock(redis),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		CrisisRepo:   crisisRepo,
		TimelineRepo: timelineRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	dashboardService := service.NewDashboardService(crisisRepo, logger)

	monitorScheduler := scheduler.New(cfg.Monitor, workspaceRepo, monitorService, logger)
	if err := monitorScheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Monitor:        handlers.NewMonitorHandler(monitorService, workspaceRepo),
		Crises:         handlers.NewCrisesHandler(lifecycleService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	monitorScheduler.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
