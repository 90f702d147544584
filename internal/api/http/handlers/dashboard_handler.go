package handlers

import "github.com/gofiber/fiber/v2"

// DashboardHandler serves the ticket summary of the signed-in user.
type DashboardHandler struct{}

// NewDashboardHandler constructs handler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Stats GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": WorkspaceFrom(c).Stats()})
}
