package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	api.Get("/me", cfg.Users.Me)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/queues/open", cfg.Tickets.OpenQueue)
	tickets.Get("/queues/unassigned", cfg.Tickets.UnassignedQueue)
	tickets.Get("/queues/urgent", cfg.Tickets.UrgentQueue)
	tickets.Get("/search", cfg.Tickets.Search)
	tickets.Get("/recent", cfg.Tickets.Recent)
	tickets.Get("/category/:category", cfg.Tickets.ByCategory)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.EditTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)

	users := api.Group("/users")
	users.Get("/technicians", cfg.Users.Technicians)
	users.Get("/search", cfg.Users.Search)
	users.Get("/department/:department", cfg.Users.ByDepartment)
	users.Get("/:id/tickets", cfg.Tickets.ByCreator)
	users.Get("/:id/assigned", cfg.Tickets.ByAssignee)

	api.Get("/dashboard/stats", auth.RequireStaff(), cfg.Dashboard.Stats)
}
