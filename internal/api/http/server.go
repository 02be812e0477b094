package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/session"
)

// ServerDependencies collects what the HTTP surface needs.
type ServerDependencies struct {
	ServiceName   string
	Version       string
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Middleware    MiddlewareConfig
	TicketService *service.TicketService
	AuthService   *service.AuthService
	Postgres      *persistence.Postgres
	Sessions      session.Store
	LoginLimiter  *LoginLimiter
}

// NewServer builds the Fiber application with middlewares and routes attached.
func NewServer(deps ServerDependencies) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               deps.ServiceName,
		DisableStartupMessage: true,
		BodyLimit:             1 << 20,
	})
	RegisterMiddlewares(app, logger, deps.Metrics, deps.Middleware)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(deps.ServiceName, deps.Version, deps.Postgres, deps.Sessions),
		Sessions:       handlers.NewSessionHandler(deps.AuthService),
		Tickets:        handlers.NewTicketsHandler(deps.TicketService),
		AuthMiddleware: auth.NewAuthMiddleware(deps.AuthService),
		LoginLimiter:   deps.LoginLimiter,
		Metrics:        deps.Metrics,
	})
	return app
}
