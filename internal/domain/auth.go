package domain

// Session is the (token, user) pair representing an authenticated context.
type Session struct {
	Token string
	User  User
}
