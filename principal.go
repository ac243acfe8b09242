package auth

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the validated result of a token check: who the token was
// issued to, with the role snapshot and timestamps it carried. Principals
// are passed explicitly to every call that needs one; nothing in this
// package resolves a principal from ambient state.
type Principal struct {
	id        uuid.UUID
	kind      TokenKind
	roles     []string
	issuedAt  time.Time
	expiresAt time.Time
}

// AccountID returns the account the token was issued to.
func (p *Principal) AccountID() uuid.UUID { return p.id }

// Kind returns the validated token kind.
func (p *Principal) Kind() TokenKind { return p.kind }

// Roles returns the role tags snapshotted at issuance.
func (p *Principal) Roles() []string { return p.roles }

// IssuedAt returns the token issuance instant.
func (p *Principal) IssuedAt() time.Time { return p.issuedAt }

// ExpiresAt returns the token expiry instant.
func (p *Principal) ExpiresAt() time.Time { return p.expiresAt }

// HasRole checks the snapshot for a specific role tag.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks whether any snapshotted role meets the minimum role.
func (p *Principal) IsAtLeast(min UserRole) bool {
	for _, r := range p.roles {
		if UserRole(r).IsAtLeast(min) {
			return true
		}
	}
	return false
}

func principalFromClaims(claims *JWTClaims, id uuid.UUID, kind TokenKind) *Principal {
	roles := make([]string, len(claims.Roles))
	copy(roles, claims.Roles)

	return &Principal{
		id:        id,
		kind:      kind,
		roles:     roles,
		issuedAt:  claims.IssuedAt(),
		expiresAt: claims.Expires(),
	}
}

// ActorRef identifies who performed an audited action. Operations that
// should be audited take the actor explicitly rather than having an
// interceptor guess it from return values.
type ActorRef struct {
	ID   string
	Type string
}
