package auth

import (
	"context"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenPair is the result of a successful login: a short-lived access
// token plus the refresh token used to mint new access tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Auther ties the external credential store to token issuance and the
// revocation registry. Every audited action takes its actor and the
// acted-on account explicitly.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	revocations  RevocationRegistry
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator. A signing-key
// misconfiguration surfaces here and must prevent the process from
// serving traffic.
func NewAuthenticator(provider IdentityProvider, cfg Config, revocations RevocationRegistry) (*Auther, error) {
	tokenService, err := NewTokenService(cfg, revocations)
	if err != nil {
		return nil, err
	}

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		revocations:  revocations,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		if impl, ok := s.tokenService.(*TokenServiceImpl); ok {
			impl.WithLogger(logger)
		}
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService swaps the token service, mostly for tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials through the external provider and issues an
// access/refresh pair carrying the account's current role snapshot.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"state":      ClassifyError(err).String(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"state":      StateUserNotFound.String(),
		})
		return nil, ErrIdentityNotFound
	}

	pair, err := s.issuePair(identity)
	if err != nil {
		s.emitEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"state":      StateUnknown.String(),
		})
		return nil, err
	}

	s.emitEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return pair, nil
}

// Refresh validates a refresh token and mints a fresh access token for
// its subject. The new token snapshots the account's current roles. No
// rotation: the refresh token itself is returned untouched and stays
// valid until expiry or revocation.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	principal, err := s.tokenService.Validate(ctx, refreshToken, KindRefresh, uuid.Nil)
	if err != nil {
		s.logger.Info("Refresh token rejected", "state", ClassifyError(err).String())
		return "", err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, principal.AccountID().String())
	if err != nil {
		s.logger.Error("Refresh identity lookup error", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryAuth, "account no longer available").
			WithTextCode(TextCodeUserNotFound).
			WithCode(goerrors.CodeUnauthorized)
	}

	access, err := s.tokenService.Issue(identity, KindAccess)
	if err != nil {
		return "", err
	}

	s.emitEvent(ctx, ActivityEventTokenRefresh, s.actorFromIdentity(identity), identity.ID(), nil)

	return access, nil
}

// RevokeAccount invalidates every token issued to the account before now.
// Account holders revoke themselves; operators pass their own actor ref.
func (s *Auther) RevokeAccount(ctx context.Context, actor ActorRef, accountID string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return goerrors.New("invalid account id", goerrors.CategoryBadInput)
	}

	revokedAt, err := s.revocations.AccountRevokeNow(ctx, id)
	if err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventAccountRevoked, actor, accountID, map[string]any{
		"revoked_at": revokedAt,
	})

	return nil
}

// RevokeAllSessions fires the system wide revocation authority. This is
// an administrative action; authorization is the caller's job, the actor
// is recorded for the audit trail.
func (s *Auther) RevokeAllSessions(ctx context.Context, actor ActorRef) error {
	revokedAt, err := s.revocations.GlobalRevokeNow(ctx)
	if err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventGlobalRevoked, actor, "", map[string]any{
		"revoked_at": revokedAt,
	})

	return nil
}

func (s *Auther) issuePair(identity Identity) (*TokenPair, error) {
	access, err := s.tokenService.Issue(identity, KindAccess)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokenService.Issue(identity, KindRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	return ActorRef{ID: identity.ID(), Type: "user"}
}

func (s *Auther) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error: %v", err)
	}
}

var _ Authenticator = (*Auther)(nil)
