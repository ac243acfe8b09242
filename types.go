package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated account as the
// credential store knows them right now. Role tags are snapshotted into
// issued tokens and never re-read at validation time.
type Identity interface {
	ID() string
	Username() string
	Email() string
	Roles() []string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	RevokeAccount(ctx context.Context, actor ActorRef, accountID string) error
	RevokeAllSessions(ctx context.Context, actor ActorRef) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Notifier delivers reset tokens to account holders through an external
// channel. The library never decides how a token travels.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, email, token string) error

func (f NotifierFunc) SendPasswordReset(ctx context.Context, email, token string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, token)
}

type noopNotifier struct{}

func (noopNotifier) SendPasswordReset(context.Context, string, string) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
