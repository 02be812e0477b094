package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets?userId=&q=&status=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), principal.User, service.TicketListFilter{
		OwnerID: c.Query("userId"),
		Query:   c.Query("q"),
		Status:  c.Query("status"),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTickets(tickets))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, req.ToTicketInput())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromTicket(ticket))
}

// AssignTicket PATCH /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), principal.User, c.Params("id"), req.AdminID, req.AdminName)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetTicketStatus(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// Reply POST /api/tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AppendReply(c.UserContext(), principal.User, c.Params("id"), req.Message, req.IsInternal)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
