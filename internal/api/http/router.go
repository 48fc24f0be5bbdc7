package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenwhite/servicedesk-sla/internal/api/http/handlers"
	"github.com/greenwhite/servicedesk-sla/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Sla    *handlers.SlaHandler
	Tokens *auth.TokenManager
}

// RegisterRoutes wires HTTP routes. The SLA surface is read-only and guarded
// by a service token with the sla:read scope.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1/sla", auth.RequireScope(cfg.Tokens, auth.ScopeSlaRead))
	api.Get("/policies", cfg.Sla.ListPolicies)
	api.Get("/policies/:id", cfg.Sla.GetPolicy)
	api.Get("/calendars", cfg.Sla.ListCalendars)
	api.Get("/metrics", cfg.Sla.GetMetrics)
	api.Get("/breaches", cfg.Sla.ListBreaches)
	api.Get("/approaching", cfg.Sla.ListApproaching)
}
