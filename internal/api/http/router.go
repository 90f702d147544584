package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticketapp/internal/api/http/handlers"
	"github.com/spec-kit/ticketapp/internal/auth"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Tickets    *handlers.TicketsHandler
	Dashboard  *handlers.DashboardHandler
	Workspaces *service.Workspaces
	Metrics    *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	withWorkspace := handlers.ResolveWorkspace(cfg.Workspaces)

	authGroup := app.Group("/auth", withWorkspace)
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/session", cfg.Auth.Session)

	requireSession := auth.RequireSession(handlers.SessionUser)

	tickets := app.Group("/tickets", withWorkspace, requireSession)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)

	dashboard := app.Group("/dashboard", withWorkspace, requireSession)
	dashboard.Get("/stats", cfg.Dashboard.Stats)
}
