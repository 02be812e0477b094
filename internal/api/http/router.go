package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *LoginLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Post("/login", cfg.LoginLimiter.Handle, cfg.Sessions.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Post("/logout", cfg.Sessions.Logout)
	protected.Get("/session", cfg.Sessions.Session)

	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Post("/tickets/:id/reply", cfg.Tickets.Reply)

	admin := protected.Group("", auth.RequireAdmin())
	admin.Patch("/tickets/:id/assign", cfg.Tickets.AssignTicket)
	admin.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
}
