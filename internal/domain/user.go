package domain

// User is the session-facing identity of an account. It never carries the
// password.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credential is the persisted account record keyed by email.
type Credential struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// User returns the credential without its secret.
func (c Credential) User() User {
	return User{ID: c.ID, Email: c.Email, Name: c.Name}
}
