package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler exposes ticket operations and queues.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.ListTickets(c.UserContext(), actor))
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondOne(c)(h.service.GetTicket(c.UserContext(), actor, c.Params("id")))
}

// EditTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) EditTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.EditTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respondOne(c)(h.service.EditTicket(c.UserContext(), actor, c.Params("id"), service.TicketEditInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	}))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignTicket POST /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondOne(c)(h.service.AssignTicket(c.UserContext(), actor, c.Params("id")))
}

// ChangeStatus POST /api/tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return respondOne(c)(h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status))
}

// OpenQueue GET /api/tickets/queues/open.
func (h *TicketsHandler) OpenQueue(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.OpenTickets(c.UserContext(), actor))
}

// UnassignedQueue GET /api/tickets/queues/unassigned.
func (h *TicketsHandler) UnassignedQueue(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.UnassignedTickets(c.UserContext(), actor))
}

// UrgentQueue GET /api/tickets/queues/urgent.
func (h *TicketsHandler) UrgentQueue(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.UrgentTickets(c.UserContext(), actor))
}

// Search GET /api/tickets/search?q=.
func (h *TicketsHandler) Search(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.SearchTickets(c.UserContext(), actor, c.Query("q")))
}

// Recent GET /api/tickets/recent?days=.
func (h *TicketsHandler) Recent(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("days must be an integer", map[string]any{"days": raw})
		}
		days = parsed
	}
	return respondList(c)(h.service.RecentTickets(c.UserContext(), actor, days))
}

// ByCategory GET /api/tickets/category/:category.
func (h *TicketsHandler) ByCategory(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.TicketsByCategory(c.UserContext(), actor, c.Params("category")))
}

// ByCreator GET /api/users/:id/tickets.
func (h *TicketsHandler) ByCreator(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.ListByCreator(c.UserContext(), actor, c.Params("id")))
}

// ByAssignee GET /api/users/:id/assigned.
func (h *TicketsHandler) ByAssignee(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	return respondList(c)(h.service.ListByAssignee(c.UserContext(), actor, c.Params("id")))
}

func respondOne(c *fiber.Ctx) func(*domain.Ticket, error) error {
	return func(ticket *domain.Ticket, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
	}
}

func respondList(c *fiber.Ctx) func([]domain.Ticket, error) error {
	return func(tickets []domain.Ticket, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
	}
}

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}
