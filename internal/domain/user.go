package domain

import "time"

// UserRole separates requesters from helpdesk administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// User owns tickets; admins triage them.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      UserRole
	CreatedAt time.Time
}

// IsAdmin reports whether the user may manage every ticket.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
