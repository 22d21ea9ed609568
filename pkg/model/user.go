package model

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleUser is a standard authenticated user.
	RoleUser UserRole = "user"
	// RoleAdmin has elevated permissions (may mutate any post).
	RoleAdmin UserRole = "admin"
)

// User represents a registered account.
// The password hash is never serialized to API responses.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
