// Package entity defines the domain entities for the auth feature.
package entity

import (
	"time"

	"foodshare_backend/internal/shared/principal"
)

// MaxNameLength is the maximum number of characters in a user's name.
const MaxNameLength = 50

// User represents a registered account.
type User struct {
	// ID is a UUID for SQL stores and an ObjectID hex string for Mongo.
	ID string

	Name string

	// Email is stored lower-cased and is unique across all users.
	Email string

	// PasswordHash is the bcrypt hash. Plaintext passwords are never stored.
	PasswordHash string

	Phone string
	Role  principal.Role

	// Active is false once the account has been deactivated.
	// Deactivated users are kept for referential integrity but cannot log in.
	Active bool

	// PasswordChangedAt is nil until the first password change.
	PasswordChangedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt. Comparison is at one-second resolution, matching JWT iat.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// Principal returns the identity used for authorization decisions.
func (u *User) Principal() principal.Principal {
	return principal.Principal{UserID: u.ID, Role: u.Role}
}

// UserScope selects whether a lookup sees deactivated users.
type UserScope int

const (
	// ActiveOnly hides deactivated users.
	ActiveOnly UserScope = iota
	// IncludeInactive returns users regardless of the active flag.
	IncludeInactive
)

// Includes reports whether a user with the given active flag is visible under s.
func (s UserScope) Includes(active bool) bool {
	return active || s == IncludeInactive
}
