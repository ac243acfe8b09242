package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService issues and validates the bearer credentials of the system.
// Issuance is a pure function of the principal and the clock; validation
// combines signature, structure, expiry, and the three revocation
// authorities into a single pass/fail decision with a specific reason.
type TokenService interface {
	Issue(identity Identity, kind TokenKind) (string, error)
	Validate(ctx context.Context, tokenString string, expectedKind TokenKind, expectedAccount uuid.UUID) (*Principal, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey  []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	issuer      string
	audience    jwt.ClaimStrings
	revocations RevocationRegistry
	logger      Logger
	now         func() time.Time
}

// NewTokenService creates a new TokenService instance. Signing-key
// misconfiguration is fatal here, at construction, never at call time.
func NewTokenService(cfg Config, revocations RevocationRegistry) (*TokenServiceImpl, error) {
	if cfg == nil {
		return nil, errors.New("token service requires a config", errors.CategoryBadInput)
	}
	if strings.TrimSpace(cfg.GetSigningKey()) == "" {
		return nil, errors.New("token service requires a signing key", errors.CategoryBadInput)
	}
	if method := cfg.GetSigningMethod(); method != "" && method != jwt.SigningMethodHS256.Alg() {
		return nil, errors.New("token service only supports HS256 signing", errors.CategoryBadInput).
			WithMetadata(map[string]any{"method": method})
	}
	if cfg.GetAccessTokenTTL() <= 0 || cfg.GetRefreshTokenTTL() <= 0 {
		return nil, errors.New("token TTLs must be positive", errors.CategoryBadInput)
	}
	if revocations == nil {
		return nil, errors.New("token service requires a revocation registry", errors.CategoryBadInput)
	}

	return &TokenServiceImpl{
		signingKey:  []byte(cfg.GetSigningKey()),
		accessTTL:   cfg.GetAccessTokenTTL(),
		refreshTTL:  cfg.GetRefreshTokenTTL(),
		issuer:      cfg.GetIssuer(),
		audience:    jwt.ClaimStrings(cfg.GetAudience()),
		revocations: revocations,
		logger:      defLogger{},
		now:         time.Now,
	}, nil
}

// WithLogger overrides the logger used by the service.
func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// WithClock overrides the time source. Useful in tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

func (ts *TokenServiceImpl) validity(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return ts.refreshTTL
	}
	return ts.accessTTL
}

// Issue creates a signed token of the given kind for the identity. The
// identity's role tags are snapshotted into the claims; they are not
// re-read from the account at validation time.
func (ts *TokenServiceImpl) Issue(identity Identity, kind TokenKind) (string, error) {
	if identity == nil {
		return "", errors.New("identity is required", errors.CategoryBadInput)
	}
	if !kind.Valid() {
		return "", errors.New("unrecognized token kind", errors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.validity(kind))),
		},
		Kind:  string(kind),
		Roles: append([]string(nil), identity.Roles()...),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate checks a presented token. The checks short-circuit in a fixed
// order for diagnostic precision; every check must pass regardless of
// order. Revocation timestamps are read fresh from the registry on every
// call so a revocation takes effect on the very next request.
//
// Pass uuid.Nil as expectedAccount when the caller has no independent
// notion of who the subject should be (the refresh flow).
func (ts *TokenServiceImpl) Validate(ctx context.Context, tokenString string, expectedKind TokenKind, expectedAccount uuid.UUID) (*Principal, error) {
	// 1. decode and verify the signature; nothing else is trusted before
	// this point and there is no way to decode without verifying.
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, newInvalidSignatureError()
		}
		return nil, newMalformedError("decode failed")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode claims")
		return nil, newMalformedError("claims type mismatch")
	}

	// 2. the kind must be present and recognized
	kind := claims.TokenKind()
	if !kind.Valid() {
		return nil, newMalformedError("missing or unrecognized kind")
	}

	// 3. the subject must parse as an account identifier
	subject, err := claims.AccountID()
	if err != nil {
		return nil, newMalformedError("subject is not an account id")
	}

	// 4. subject mismatch is reported as the same class as a decode
	// failure; which check failed never leaks across account boundaries
	if expectedAccount != uuid.Nil && subject != expectedAccount {
		return nil, newMalformedError("subject mismatch")
	}

	// 5. kind mismatch is client misuse and carries both kinds
	if kind != expectedKind {
		return nil, newWrongTypeError(expectedKind, kind)
	}

	now := ts.now()

	// 6. expiry; a token without an expiry is structurally invalid
	if claims.ExpiresAt == nil {
		return nil, newMalformedError("missing expiry")
	}
	if claims.Expires().Before(now) {
		return nil, newExpiredError(claims.Expires())
	}

	// 7. a token without an issuance time cannot be checked against
	// revocation and must never be treated as permanently valid
	if claims.RegisteredClaims.IssuedAt == nil {
		return nil, newMalformedError("missing issued at")
	}
	issuedAt := claims.IssuedAt()

	// 8. system wide revocation
	globalAt, err := ts.revocations.GetGlobal(ctx)
	if err != nil {
		return nil, failClosed(err, "global revocation state unavailable")
	}
	if issuedAt.Before(globalAt) {
		return nil, newGlobalRevokedError(globalAt)
	}

	// 9. per account revocation
	accountAt, err := ts.revocations.GetAccount(ctx, subject)
	if err != nil {
		return nil, failClosed(err, "account revocation state unavailable")
	}
	if issuedAt.Before(accountAt) {
		return nil, newAccountRevokedError(accountAt)
	}

	// 10. password change revocation, distinguishable so clients can say
	// "your password changed" rather than "you logged out everywhere"
	changedAt, err := ts.revocations.GetPasswordChangedAt(ctx, subject)
	if err != nil {
		return nil, failClosed(err, "password change state unavailable")
	}
	if issuedAt.Before(changedAt) {
		return nil, newPasswordChangedError(changedAt)
	}

	return principalFromClaims(claims, subject, kind), nil
}
