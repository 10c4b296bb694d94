package model

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleCleaner is a standard end user who works through daily assignments.
	RoleCleaner UserRole = "cleaner"
	// RoleAdmin manages users, locations, rooms, tasks, and assignments.
	RoleAdmin UserRole = "admin"
)

// User represents a sweeply account.
// Accounts are created by an admin and activated by the user via an
// activation code before first login.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        UserRole   `json:"role"`
	Activated   bool       `json:"activated"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
