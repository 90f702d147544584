package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketapp/internal/api/dto"
	"github.com/spec-kit/ticketapp/internal/validation"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

// AuthHandler exposes the session endpoints. Signup and login answer with
// dto.AuthResult whatever the outcome.
type AuthHandler struct{}

// NewAuthHandler constructs handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return authFailure(c, apperrors.NewValidationError("invalid payload", nil))
	}
	if err := validation.Signup(req.Name, req.Email, req.Password, req.ConfirmPassword); err != nil {
		return authFailure(c, err)
	}

	ws := WorkspaceFrom(c)
	if err := ws.Signup(c.UserContext(), req.Email, req.Password, req.Name); err != nil {
		return authFailure(c, err)
	}
	return c.Status(http.StatusCreated).JSON(dto.AuthResult{Success: true, User: ws.Session.CurrentUser()})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return authFailure(c, apperrors.NewValidationError("invalid payload", nil))
	}
	if err := validation.Login(req.Email, req.Password); err != nil {
		return authFailure(c, err)
	}

	ws := WorkspaceFrom(c)
	if err := ws.Login(c.UserContext(), req.Email, req.Password); err != nil {
		return authFailure(c, err)
	}
	return c.JSON(dto.AuthResult{Success: true, User: ws.Session.CurrentUser()})
}

// Logout handles POST /auth/logout. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	WorkspaceFrom(c).Logout(c.UserContext())
	return c.JSON(dto.AuthResult{Success: true})
}

// Session handles GET /auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session := WorkspaceFrom(c).Session
	return c.JSON(dto.SessionResponse{
		Authenticated: session.IsAuthenticated(),
		User:          session.CurrentUser(),
		Token:         session.Token(),
	})
}

func authFailure(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		domainErr = apperrors.NewUnexpected(err).(*apperrors.DomainError)
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.AuthResult{
		Success: false,
		Error:   domainErr.Message,
		Fields:  domainErr.Details,
	})
}
