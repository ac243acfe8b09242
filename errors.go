package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by rich errors; they are the stable identifiers the
// AuthState classifier keys on. Raw messages never cross the trust boundary.
const (
	TextCodeNoToken          = "NO_TOKEN"
	TextCodeEmptyToken       = "EMPTY_TOKEN"
	TextCodeWrongAuthFormat  = "WRONG_AUTH_FORMAT"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeInvalidSignature = "INVALID_SIGNATURE"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenRevoked     = "TOKEN_REVOKED"
	TextCodeGlobalRevoked    = "TOKEN_REVOKED_GLOBAL"
	TextCodePasswordChanged  = "PASSWORD_CHANGED"
	TextCodeWrongTokenType   = "WRONG_TOKEN_TYPE"
	TextCodeUserNotFound     = "USER_NOT_FOUND"
	TextCodeResetInvalid     = "INVALID_TOKEN"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput)

// ErrMismatchedHashAndPassword is returned when the cleartext does not match the stored hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

func newMalformedError(reason string) *goerrors.Error {
	// reason stays in metadata for operator logs; the message is generic so
	// callers cannot learn which structural check failed.
	return goerrors.New("token is malformed", goerrors.CategoryAuth).
		WithTextCode(TextCodeTokenMalformed).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"reason": reason})
}

func newInvalidSignatureError() *goerrors.Error {
	return goerrors.New("token signature could not be verified", goerrors.CategoryAuth).
		WithTextCode(TextCodeInvalidSignature).
		WithCode(goerrors.CodeUnauthorized)
}

func newExpiredError(expiredAt time.Time) *goerrors.Error {
	return goerrors.New("token is expired", goerrors.CategoryAuth).
		WithTextCode(TextCodeTokenExpired).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"expired_at": expiredAt})
}

func newWrongTypeError(expected, actual TokenKind) *goerrors.Error {
	return goerrors.New("wrong token type presented", goerrors.CategoryAuth).
		WithTextCode(TextCodeWrongTokenType).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{
			"expected_kind": string(expected),
			"actual_kind":   string(actual),
		})
}

func newGlobalRevokedError(revokedAt time.Time) *goerrors.Error {
	return goerrors.New("token predates a system wide revocation", goerrors.CategoryAuth).
		WithTextCode(TextCodeGlobalRevoked).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"revoked_at": revokedAt})
}

func newAccountRevokedError(revokedAt time.Time) *goerrors.Error {
	return goerrors.New("token predates an account revocation", goerrors.CategoryAuth).
		WithTextCode(TextCodeTokenRevoked).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"revoked_at": revokedAt})
}

func newPasswordChangedError(changedAt time.Time) *goerrors.Error {
	return goerrors.New("token predates a password change", goerrors.CategoryAuth).
		WithTextCode(TextCodePasswordChanged).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"changed_at": changedAt})
}

func newResetTokenInvalidError() *goerrors.Error {
	return goerrors.New("invalid or already consumed reset token", goerrors.CategoryNotFound).
		WithTextCode(TextCodeResetInvalid).
		WithCode(goerrors.CodeNotFound)
}

func newResetTokenExpiredError(expiredAt time.Time) *goerrors.Error {
	return goerrors.New("reset token has expired", goerrors.CategoryValidation).
		WithTextCode(TextCodeTokenExpired).
		WithMetadata(map[string]any{"expired_at": expiredAt})
}

// failClosed wraps a storage error so it can never be mistaken for a
// "no revocation recorded" result.
func failClosed(err error, msg string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// errTextCode extracts the text code from a rich error, or "" for
// everything else.
func errTextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errTextCode(err) == TextCodeTokenExpired
}

// IsMalformedError will check for structurally invalid tokens
func IsMalformedError(err error) bool {
	switch errTextCode(err) {
	case TextCodeTokenMalformed, TextCodeInvalidSignature:
		return true
	}
	return false
}

// IsRevokedError reports whether any of the three revocation authorities
// rejected the token.
func IsRevokedError(err error) bool {
	switch errTextCode(err) {
	case TextCodeTokenRevoked, TextCodeGlobalRevoked, TextCodePasswordChanged:
		return true
	}
	return false
}

// RevocationInstant returns the revocation timestamp a revocation error
// carries, so clients can message "logged out everywhere at T" precisely.
func RevocationInstant(err error) (time.Time, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return time.Time{}, false
	}
	for _, key := range []string{"revoked_at", "changed_at"} {
		if raw, ok := richErr.Metadata[key]; ok {
			if at, ok := raw.(time.Time); ok {
				return at, true
			}
		}
	}
	return time.Time{}, false
}
