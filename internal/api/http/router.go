package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/brandpulse/crisis-service/internal/api/http/handlers"
	"github.com/brandpulse/crisis-service/internal/auth"
	"github.com/brandpulse/crisis-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Monitor        *handlers.MonitorHandler
	Crises         *handlers.CrisesHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	workspaces := app.Group("/workspaces", cfg.AuthMiddleware.Handle)
	workspaces.Post("/:id/monitor/run", cfg.Monitor.Run)
	workspaces.Get("/:id/dashboard", cfg.Dashboard.GetDashboard)

	crises := app.Group("/crises", cfg.AuthMiddleware.Handle)
	crises.Get("/:id", cfg.Crises.GetCrisis)
	crises.Get("/:id/timeline", cfg.Crises.GetTimeline)
	crises.Post("/:id/status", cfg.Crises.UpdateStatus)
}
