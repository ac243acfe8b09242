package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates short-lived per-request credentials from the
// longer-lived credentials used only to mint new access tokens.
type TokenKind string

const (
	// KindAccess is the short-lived credential checked on every request
	KindAccess TokenKind = "access"
	// KindRefresh is the longer-lived credential exchanged for fresh access tokens
	KindRefresh TokenKind = "refresh"
)

// Valid reports whether the kind is one of the two recognized values.
func (k TokenKind) Valid() bool {
	switch k {
	case KindAccess, KindRefresh:
		return true
	default:
		return false
	}
}

// JWTClaims is the signed wire structure: subject, issuance and expiry
// instants, token kind, and the role tags snapshotted at issuance.
type JWTClaims struct {
	jwt.RegisteredClaims
	Kind  string   `json:"knd,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID parses the subject claim as an account identifier.
func (c *JWTClaims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// TokenKind returns the kind claim without validating it.
func (c *JWTClaims) TokenKind() TokenKind {
	return TokenKind(c.Kind)
}

// RoleTags returns the role snapshot carried by the token. The snapshot is
// taken at issuance; the account's current roles are never consulted here.
func (c *JWTClaims) RoleTags() []string {
	return c.Roles
}

// HasRole checks if the snapshot carries a specific role tag
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if any snapshotted role meets the minimum required role
func (c *JWTClaims) IsAtLeast(minRole UserRole) bool {
	for _, r := range c.Roles {
		if UserRole(r).IsAtLeast(minRole) {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
