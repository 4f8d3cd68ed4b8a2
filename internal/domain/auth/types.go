package auth

// Package auth contains domain-level types for caller identity and trust.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents the trust level a caller is granted.
// Valid values are defined as constants below.
type Role string

const (
	// RoleOwner is a creator acting on their own jobs.
	RoleOwner Role = "owner"
	// RoleWorker is a background worker allowed to drive any job through its lifecycle.
	RoleWorker Role = "worker"
	// RoleAdmin may trigger maintenance.
	RoleAdmin Role = "admin"
	// RoleGuest is an authenticated identity with no access.
	RoleGuest Role = "guest"
)

// Satisfies reports whether r meets the required role. Admin satisfies every role.
func (r Role) Satisfies(required Role) bool {
	if r == RoleGuest || r == "" {
		return false
	}
	return r == required || r == RoleAdmin
}

// Identity represents a verified token subject returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (sub)
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from the token
}

// Principal is the resolved caller of a request.
type Principal struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// IsOwner returns true if the principal acts as a job owner.
func (p Principal) IsOwner() bool { return p.Role == RoleOwner }
