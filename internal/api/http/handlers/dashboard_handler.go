package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// DashboardHandler serves ticket statistics.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboard}
}

// Stats GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	if stats.ByStatus == nil {
		stats.ByStatus = map[domain.TicketStatus]int{}
	}
	if stats.ByPriority == nil {
		stats.ByPriority = map[domain.TicketPriority]int{}
	}
	return c.JSON(fiber.Map{"data": stats})
}
