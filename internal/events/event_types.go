package events

import (
	"time"

	"github.com/spec-kit/ticketapp/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp  EventType = "user_signed_up"
	EventUserLoggedIn  EventType = "user_logged_in"
	EventUserLoggedOut EventType = "user_logged_out"
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventTicketDeleted EventType = "ticket_deleted"
)

// Event represents a domain event emitted by the stores.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// UserPayload accompanies the user_* events.
type UserPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TicketPayload accompanies ticket_created and ticket_updated.
type TicketPayload struct {
	Title    string                `json:"title"`
	Status   domain.TicketStatus   `json:"status"`
	Priority domain.TicketPriority `json:"priority,omitempty"`
}
