package domain

import "time"

// Role distinguishes employees from helpdesk administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an employee or administrator known to the helpdesk.
type User struct {
	ID           string
	Name         string
	Email        string
	Department   string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin capability.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ActorSnapshot captures who performed a timeline action.
func (u *User) ActorSnapshot() Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Name: u.Name, Role: u.Role}
}
