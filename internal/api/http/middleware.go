package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// MiddlewareConfig carries settings for the global middleware chain.
type MiddlewareConfig struct {
	Timeout     time.Duration
	CORSOrigins string
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps the error handler so it observes final status codes.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if origins := strings.TrimSpace(cfg.CORSOrigins); origins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET,POST,PATCH,OPTIONS",
		}))
	}
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(toFiberDomainError(err))
				metrics.RecordError(domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed",
						zap.String("path", c.Path()),
						zap.String("method", c.Method()),
						zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// toFiberDomainError keeps router level errors such as unknown routes from
// being reported as internal failures.
func toFiberDomainError(err error) error {
	var fiberErr *fiber.Error
	if !errors.As(err, &fiberErr) {
		return err
	}
	switch fiberErr.Code {
	case fiber.StatusNotFound:
		return apperrors.NewNotFound("route", nil)
	case fiber.StatusMethodNotAllowed:
		return apperrors.NewDomainError("METHOD_NOT_ALLOWED", fiberErr.Message, fiberErr.Code, nil)
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperrors.NewValidationError(fiberErr.Message, nil)
	case fiber.StatusRequestEntityTooLarge:
		return apperrors.NewDomainError("PAYLOAD_TOO_LARGE", fiberErr.Message, fiberErr.Code, nil)
	default:
		return err
	}
}
