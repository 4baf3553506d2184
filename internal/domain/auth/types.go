package auth

// Package auth contains domain-level types for authentication and authorization.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Identity is the provider-verified representation of who is making the request.
// It is owned by the upstream identity provider and never mutated here.
type Identity struct {
	ID    string
	Email string
}

// IsZero reports whether the identity carries no user id.
func (i Identity) IsZero() bool { return i.ID == "" }

// UpstreamSession is the access/refresh token pair issued by the identity provider.
type UpstreamSession struct {
	AccessToken      string
	RefreshToken     string
	ExpiresInSeconds int
}

// ExpiresIn returns the access token lifetime as a duration.
func (s UpstreamSession) ExpiresIn() time.Duration {
	return time.Duration(s.ExpiresInSeconds) * time.Second
}

// Claims is the minimal payload of the self-issued token.
type Claims struct {
	UserID    string
	Email     string
	Name      string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the claims are past their expiry at now.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Identity returns the identity the claims were issued for.
func (c Claims) Identity() Identity {
	return Identity{ID: c.UserID, Email: c.Email}
}

// Profile is the system's own record of whether an identity may use the admin surface.
type Profile struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// DenyReason explains why an authorization decision denied access.
type DenyReason string

const (
	DenyNone            DenyReason = ""
	DenyNotAdmin        DenyReason = "not an admin"
	DenyAccountDisabled DenyReason = "account disabled"
)

// User is the public projection of an authorized admin.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Decision is the outcome of resolving an identity against its authorization profile.
type Decision struct {
	IsAdmin bool
	User    *User
	Reason  DenyReason
}

// Decide applies the admin decision table to a profile lookup result.
// A nil profile means no profile exists for the identity.
func Decide(p *Profile) Decision {
	switch {
	case p == nil:
		return Decision{Reason: DenyNotAdmin}
	case !p.IsActive:
		return Decision{Reason: DenyAccountDisabled}
	case p.Role != RoleAdmin:
		return Decision{Reason: DenyNotAdmin}
	}
	return Decision{
		IsAdmin: true,
		User: &User{
			ID:    p.UserID,
			Email: p.Email,
			Name:  p.Name,
			Role:  p.Role,
		},
	}
}

// NormalizeEmail lowercases and trims an email address before it is submitted upstream.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
