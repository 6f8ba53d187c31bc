package domain

import (
	"context"
	"slices"
	"strings"
)

// User is a registrant (or organizer) as seen by the RSVP core.
// swagger:model User
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns "First Last", falling back to the email when both are empty.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserRepository looks up users. Implementations return ErrUserNotFound for unknown ids.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// RoleEventService is granted to tokens minted for the event-management
// service. Only it may call the event update and release hooks.
const RoleEventService = "event-service"

// Principal is the identity carried by a verified bearer token.
type Principal struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the principal was granted role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// TokenVerifier verifies a token and returns the principal it was issued to.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}
