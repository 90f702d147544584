// Package validation holds the form rules shared by every client of the
// stores.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/ticketapp/internal/domain"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

const (
	maxNameLen        = 100
	maxEmailLen       = 255
	minPasswordLen    = 6
	maxPasswordLen    = 100
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

// Errors maps a form field to its first failing message.
type Errors map[string]string

func (e Errors) add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	details := make(map[string]any, len(e))
	for k, v := range e {
		details[k] = v
	}
	return apperrors.NewValidationError("validation failed", details)
}

// Login validates the login form.
func Login(email, password string) error {
	errs := Errors{}
	checkEmail(errs, email)
	if password == "" {
		errs.add("password", "Password is required")
	} else if utf8.RuneCountInString(password) < minPasswordLen {
		errs.add("password", "Password must be at least 6 characters")
	}
	return errs.err()
}

// Signup validates the signup form. confirm is checked only when non-empty.
func Signup(name, email, password, confirm string) error {
	errs := Errors{}
	switch {
	case strings.TrimSpace(name) == "":
		errs.add("name", "Name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		errs.add("name", "Name must be less than 100 characters")
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		errs.add("email", "Email must be less than 255 characters")
	}
	checkEmail(errs, email)
	switch n := utf8.RuneCountInString(password); {
	case password == "":
		errs.add("password", "Password is required")
	case n < minPasswordLen:
		errs.add("password", "Password must be at least 6 characters")
	case n > maxPasswordLen:
		errs.add("password", "Password must be less than 100 characters")
	}
	if confirm != "" && confirm != password {
		errs.add("confirmPassword", "Passwords must match")
	}
	return errs.err()
}

// TicketInput validates a new ticket.
func TicketInput(in domain.TicketInput) error {
	errs := Errors{}
	checkTitle(errs, in.Title)
	checkDescription(errs, in.Description)
	if in.Status == "" {
		errs.add("status", "Status is required")
	} else if !in.Status.Valid() {
		errs.add("status", "Invalid status")
	}
	checkPriority(errs, in.Priority)
	return errs.err()
}

// TicketUpdate validates the fields present in a partial update.
func TicketUpdate(u domain.TicketUpdate) error {
	errs := Errors{}
	if u.Title != nil {
		checkTitle(errs, *u.Title)
	}
	if u.Description != nil {
		checkDescription(errs, *u.Description)
	}
	if u.Status != nil && !u.Status.Valid() {
		errs.add("status", "Invalid status")
	}
	if u.Priority != nil {
		checkPriority(errs, *u.Priority)
	}
	return errs.err()
}

func checkEmail(errs Errors, email string) {
	if strings.TrimSpace(email) == "" {
		errs.add("email", "Email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.add("email", "Must be a valid email")
	}
}

func checkTitle(errs Errors, title string) {
	if strings.TrimSpace(title) == "" {
		errs.add("title", "Title is required")
	} else if utf8.RuneCountInString(title) > maxTitleLen {
		errs.add("title", "Title must be less than 100 characters")
	}
}

func checkDescription(errs Errors, desc string) {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		errs.add("description", "Description must be less than 500 characters")
	}
}

func checkPriority(errs Errors, p domain.TicketPriority) {
	if p != "" && !p.Valid() {
		errs.add("priority", "Invalid priority")
	}
}
