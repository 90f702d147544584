package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/service"
)

// WorkspaceHeader selects the namespace of a request.
const WorkspaceHeader = "X-Workspace-ID"

const workspaceKey = "workspace"

// ResolveWorkspace looks up the request's workspace and restores its
// persisted session before any handler runs.
func ResolveWorkspace(registry *service.Workspaces) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ws, err := registry.Get(c.Get(WorkspaceHeader))
		if err != nil {
			return err
		}
		if _, err := ws.CheckAuth(c.UserContext()); err != nil {
			return err
		}
		c.Locals(workspaceKey, ws)
		return c.Next()
	}
}

// WorkspaceFrom returns the workspace stored by ResolveWorkspace.
func WorkspaceFrom(c *fiber.Ctx) *service.Workspace {
	ws, _ := c.Locals(workspaceKey).(*service.Workspace)
	return ws
}

// SessionUser reports the signed-in user of the request's workspace. It
// satisfies auth.SessionSource.
func SessionUser(c *fiber.Ctx) (*domain.User, error) {
	ws := WorkspaceFrom(c)
	if ws == nil {
		return nil, nil
	}
	return ws.Session.CurrentUser(), nil
}
