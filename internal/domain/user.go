// Package domain contains the core business entities for the JMRH portal.
// These are pure Go structs with no external dependencies, representing
// the accounts and manuscripts the journal works with.
package domain

import (
	"strings"
	"time"
)

// Role determines which routes and operations an account may use.
type Role string

const (
	// RoleAdmin manages users, professors and paper assignment.
	RoleAdmin Role = "ADMIN"

	// RoleProfessor reviews the papers assigned to them.
	RoleProfessor Role = "PROFESSOR"

	// RoleUser submits papers and tracks their status.
	RoleUser Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleUser:
		return true
	}
	return false
}

// UserStatus is the account standing of a user.
type UserStatus string

const (
	// UserActive accounts may use the portal according to their role.
	UserActive UserStatus = "ACTIVE"

	// UserBanned accounts are locked out of every protected route.
	UserBanned UserStatus = "BANNED"
)

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (uuid, never reused).
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is the contact and login address.
	// Uniqueness is compared case-insensitively.
	Email string `json:"email"`

	// Role is fixed at creation time.
	Role Role `json:"role"`

	// Status is ACTIVE or BANNED.
	Status UserStatus `json:"status"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// PasswordHash is the bcrypt hash used for web sign-in.
	// Empty for accounts that only exist for the admin CLI.
	PasswordHash string `json:"passwordHash,omitempty"`
}

// NewUser creates a new active User with the given role.
func NewUser(id, name, email string, role Role, now time.Time) User {
	return User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    UserActive,
		CreatedAt: now,
	}
}

// IsBanned returns true if the account has been banned by an admin.
func (u User) IsBanned() bool {
	return u.Status == UserBanned
}

// HasRole returns true if the user's role is one of roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// CanSignIn returns true if the account has web credentials.
func (u User) CanSignIn() bool {
	return u.PasswordHash != ""
}

// NormalizeEmail returns the form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
