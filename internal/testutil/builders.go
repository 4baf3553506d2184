package testutil

import (
	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

// ProfileBuilder provides a fluent interface for building admin profiles for testing.
type ProfileBuilder struct {
	p domainauth.Profile
}

// NewProfile creates a ProfileBuilder for an active admin.
func NewProfile(userID string) *ProfileBuilder {
	return &ProfileBuilder{p: domainauth.Profile{
		ID:       "profile-" + userID,
		UserID:   userID,
		Email:    userID + "@test.com",
		Name:     "Test " + userID,
		Role:     domainauth.RoleAdmin,
		IsActive: true,
	}}
}

// WithEmail sets the email.
func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.p.Email = email
	return b
}

// WithName sets the display name.
func (b *ProfileBuilder) WithName(name string) *ProfileBuilder {
	b.p.Name = name
	return b
}

// WithRole sets the role.
func (b *ProfileBuilder) WithRole(role domainauth.Role) *ProfileBuilder {
	b.p.Role = role
	return b
}

// Disabled marks the profile inactive.
func (b *ProfileBuilder) Disabled() *ProfileBuilder {
	b.p.IsActive = false
	return b
}

// Build returns the profile value.
func (b *ProfileBuilder) Build() domainauth.Profile {
	return b.p
}

// BuildPtr returns a pointer to a copy of the profile.
func (b *ProfileBuilder) BuildPtr() *domainauth.Profile {
	p := b.p
	return &p
}
