package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailExists        = "EMAIL_ALREADY_EXISTS"
	CodeUnexpected         = "UNEXPECTED_ERROR"
	CodeValidation         = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidCredentials = NewDomainError(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized, nil)
	ErrEmailAlreadyExists = NewDomainError(CodeEmailExists, "An account with this email already exists", http.StatusConflict, nil)
	ErrUnexpected         = NewDomainError(CodeUnexpected, "An unexpected error occurred.", http.StatusInternalServerError, nil)
	ErrValidation         = NewDomainError(CodeValidation, "validation failed", http.StatusBadRequest, nil)
	ErrUnauthorized       = NewDomainError(CodeUnauthorized, "unauthorized", http.StatusUnauthorized, nil)
	ErrNotFound           = NewDomainError(CodeNotFound, "not found", http.StatusNotFound, nil)
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewUnexpected wraps a storage or parse failure in the generic user-facing error.
func NewUnexpected(err error) error {
	return &DomainError{
		Code:       CodeUnexpected,
		Message:    ErrUnexpected.Message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
