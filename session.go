package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionObject is the cookie-facing view of a validated token, built
// from a Principal for HTTP consumers that want a serializable shape.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Kind           string     `json:"kind,omitempty"`
	Roles          []string   `json:"roles,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// SessionFromPrincipal converts a validated principal into a session view.
func SessionFromPrincipal(p *Principal) *SessionObject {
	if p == nil {
		return nil
	}

	issuedAt := p.IssuedAt()
	expiresAt := p.ExpiresAt()

	return &SessionObject{
		UserID:         p.AccountID().String(),
		Kind:           string(p.Kind()),
		Roles:          append([]string(nil), p.Roles()...),
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// HasRole checks if the session carries a specific role tag
func (s *SessionObject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if any session role meets the minimum required role
func (s *SessionObject) IsAtLeast(min UserRole) bool {
	for _, r := range s.Roles {
		if UserRole(r).IsAtLeast(min) {
			return true
		}
	}
	return false
}
