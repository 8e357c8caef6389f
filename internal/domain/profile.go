package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthProvider identifies how an account was created.
type AuthProvider string

const (
	AuthProviderEmail  AuthProvider = "EMAIL"
	AuthProviderGoogle AuthProvider = "GOOGLE"
	AuthProviderKakao  AuthProvider = "KAKAO"
)

// ProfileRole controls access to the administrative surface.
type ProfileRole string

const (
	RoleMember ProfileRole = "MEMBER"
	RoleAdmin  ProfileRole = "ADMIN"
)

// Profile represents a person known to the portal. A person who signed up by
// email and later logs in via OAuth is resolved to a single profile through
// LinkedProfileID.
type Profile struct {
	ID              uuid.UUID    `json:"id"`
	Email           string       `json:"email"`
	Name            string       `json:"name"`
	Phone           string       `json:"phone,omitempty"`
	Provider        AuthProvider `json:"provider"`
	ProviderSubject string       `json:"provider_subject,omitempty"`
	LinkedProfileID *uuid.UUID   `json:"linked_profile_id,omitempty"`
	LinkedAt        *time.Time   `json:"linked_at,omitempty"`
	Role            ProfileRole  `json:"role"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewProfile creates a member profile for the given signup provider.
func NewProfile(email, name string, provider AuthProvider, providerSubject string) Profile {
	now := time.Now()
	return Profile{
		ID:              uuid.New(),
		Email:           email,
		Name:            name,
		Provider:        provider,
		ProviderSubject: providerSubject,
		Role:            RoleMember,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// WithLink returns a copy of the profile linked to another profile, used when
// an OAuth identity and an email signup resolve to the same person.
func (p Profile) WithLink(target uuid.UUID) Profile {
	now := time.Now()
	p.LinkedProfileID = &target
	p.LinkedAt = &now
	p.UpdatedAt = now
	return p
}

// WithProvider returns a copy carrying the OAuth identity, used when a
// provider login resolves an existing email-signup profile.
func (p Profile) WithProvider(provider AuthProvider, subject string) Profile {
	p.Provider = provider
	p.ProviderSubject = subject
	p.UpdatedAt = time.Now()
	return p
}

// CanonicalID returns the profile identity that owns fund memberships. Linked
// profiles defer to their link target.
func (p Profile) CanonicalID() uuid.UUID {
	if p.LinkedProfileID != nil {
		return *p.LinkedProfileID
	}
	return p.ID
}
