package repository

import "errors"

// Namespace keys shared with every client of the same namespace.
const (
	SessionTokenKey  = "ticketapp_session"
	SessionUserKey   = "ticketapp_user"
	TicketsKey       = "ticketapp_tickets"
	credentialPrefix = "user_"
)

// CredentialKey returns the key of the credential record for email.
func CredentialKey(email string) string {
	return credentialPrefix + email
}

var (
	// ErrAlreadyExists is returned when creating a record whose key is taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("stored value is corrupt")
)
