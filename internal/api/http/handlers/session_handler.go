package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SessionHandler exposes login, logout and the current session.
type SessionHandler struct {
	auth *service.AuthService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService) *SessionHandler {
	return &SessionHandler{auth: authService}
}

// Login POST /api/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Role:     req.Role,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		User:      dto.FromUser(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout POST /api/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), principal.SessionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Session GET /api/session.
func (h *SessionHandler) Session(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.SessionResponse{
		User:      dto.FromUser(principal.User),
		SessionID: principal.SessionID,
	})
}
