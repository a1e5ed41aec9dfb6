// Package auth resolves bearer tokens issued by the hosted identity provider
// to user identities. Tokens are either verified locally (JWKS or shared
// secret) or exchanged with the provider's "current user" endpoint.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token does not resolve to a live identity.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims issued by the identity provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, aud).
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`       // Database role, "authenticated" for signed-in users
	SessionID string `json:"session_id,omitempty"` // Provider session the token belongs to
}

// User is the identity a token resolves to.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
}

// User converts the claims to a User. The subject must be a non-nil UUID.
func (c *Claims) User() (*User, error) {
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a UUID", ErrInvalidToken)
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: subject is the nil UUID", ErrInvalidToken)
	}
	return &User{ID: id, Email: c.Email, Role: c.Role}, nil
}
