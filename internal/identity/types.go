// Package identity defines the principal model for the admin gateway and the
// interface to the external identity store that owns all principal state.
package identity

import (
	"time"
)

// Role is the access tier tag carried in a principal's metadata.
type Role string

const (
	// RoleOwner is held by exactly one principal, designated by configuration.
	RoleOwner Role = "owner"

	// RoleAdmin may read the user directory and mutate roles.
	RoleAdmin Role = "admin"

	// RoleUser is the default tier for principals without an explicit role.
	RoleUser Role = "user"

	// RoleBlocked marks principals that are denied access by the front-end.
	RoleBlocked Role = "blocked"
)

// Valid reports whether r is one of the four recognized role tags.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleUser, RoleBlocked:
		return true
	default:
		return false
	}
}

// String returns the role tag as a plain string.
func (r Role) String() string {
	return string(r)
}

// Principal is a caller identity as held by the identity store. The gateway
// never persists principals; every request re-fetches current state.
type Principal struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         Role           `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	LastSignInAt *time.Time     `json:"last_sign_in_at"`
	Metadata     map[string]any `json:"user_metadata,omitempty"`
}

// WithoutMetadata returns a copy of p with the raw metadata stripped.
// Directory listings omit metadata; single-user lookups include it.
func (p *Principal) WithoutMetadata() *Principal {
	c := *p
	c.Metadata = nil
	return &c
}
