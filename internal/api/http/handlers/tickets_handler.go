package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketapp/internal/api/dto"
	"github.com/spec-kit/ticketapp/internal/service"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

// TicketsHandler manages the signed-in user's tickets.
type TicketsHandler struct{}

// NewTicketsHandler constructs handler.
func NewTicketsHandler() *TicketsHandler {
	return &TicketsHandler{}
}

// ListTickets GET /tickets?status=&q=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketFilter{
		Search: c.Query("q"),
		Status: c.Query("status"),
	}
	tickets := WorkspaceFrom(c).Filter(filter)
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := WorkspaceFrom(c).AddTicket(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	if ticket == nil {
		return apperrors.NewUnauthorized("not signed in")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, ok := WorkspaceFrom(c).Ticket(c.Params("id"))
	if !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id := c.Params("id")
	ticket, err := WorkspaceFrom(c).UpdateTicket(c.UserContext(), id, req.Update())
	if err != nil {
		return err
	}
	if ticket == nil {
		return apperrors.NewNotFound("ticket", fiber.Map{"id": id})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(*ticket)})
}

// DeleteTicket DELETE /tickets/:id. Deleting an unknown ticket succeeds.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := WorkspaceFrom(c).DeleteTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
