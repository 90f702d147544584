package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketapp/internal/domain"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

// SessionSource reports the signed-in user of the request's workspace.
type SessionSource func(c *fiber.Ctx) (*domain.User, error)

// RequireSession rejects requests whose workspace has no active session.
func RequireSession(source SessionSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := source(c)
		if err != nil {
			return err
		}
		if user == nil {
			return apperrors.NewUnauthorized("not signed in")
		}
		return c.Next()
	}
}
