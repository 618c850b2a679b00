package models

import (
	"strings"
	"time"

	dErrors "cat/pkg/domain-errors"
)

// Role is a coarse capability attached to a user profile.
type Role string

const (
	// RoleIdentified is granted on registration; it only means the identity
	// has a profile in this service.
	RoleIdentified Role = "identified"
	// RoleAdmin allows moderation: validation review, assessment deletion,
	// user listing, deny-access.
	RoleAdmin Role = "admin"
	// RoleDenyAccess blocks the identity at the authorization boundary for
	// every operation. Only administrators assign it.
	RoleDenyAccess Role = "deny_access"
)

// User is the profile kept for an externally-authenticated identity.
//
// Invariants:
//   - ID is the token subject, non-empty, immutable
//   - Roles always contain RoleIdentified after registration
//   - RoleDenyAccess carries a non-empty DenyReason
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Roles      []Role    `json:"roles"`
	DenyReason string    `json:"deny_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewUser builds a registered profile, validating invariants.
func NewUser(id, name, email string, now time.Time) (*User, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name must be 128 characters or less")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a valid email is required")
	}
	return &User{
		ID:        id,
		Name:      name,
		Email:     email,
		Roles:     []Role{RoleIdentified},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

func (u *User) IsDenied() bool {
	return u.HasRole(RoleDenyAccess)
}

// Deny flags the user as access-denied. Idempotent on the role, but the
// reason is always replaced so the latest administrative decision wins.
func (u *User) Deny(reason string, now time.Time) {
	if !u.HasRole(RoleDenyAccess) {
		u.Roles = append(u.Roles, RoleDenyAccess)
	}
	u.DenyReason = reason
	u.UpdatedAt = now
}
