package dto

import "github.com/spec-kit/ticketapp/internal/domain"

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the outcome of signup and login. Error is set only when
// Success is false.
type AuthResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	User    *domain.User   `json:"user,omitempty"`
}

// SessionResponse describes the restored session of a workspace.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
	Token         string       `json:"token,omitempty"`
}
