package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// AuthState is the closed set of authentication outcomes the HTTP layer
// shapes responses from. Every validation failure maps to exactly one
// state; internal diagnostic strings stay behind this boundary.
type AuthState string

const (
	StateAuthenticated   AuthState = "AUTHENTICATED"
	StateNoToken         AuthState = "NO_TOKEN"
	StateEmptyToken      AuthState = "EMPTY_TOKEN"
	StateMalformed       AuthState = "MALFORMED"
	StateWrongAuthFormat AuthState = "WRONG_AUTH_FORMAT"
	StateInvalidSig      AuthState = "INVALID_SIGNATURE"
	StateExpired         AuthState = "EXPIRED"
	StateRevoked         AuthState = "REVOKED"
	StateRevokedGlobal   AuthState = "REVOKED_GLOBAL"
	StatePasswordChanged AuthState = "PASSWORD_CHANGED"
	StateWrongTokenType  AuthState = "WRONG_TOKEN_TYPE"
	StateUserNotFound    AuthState = "USER_NOT_FOUND"
	StateUnknown         AuthState = "UNKNOWN"
)

func (s AuthState) String() string { return string(s) }

// Authenticated reports whether the state allows the request through.
func (s AuthState) Authenticated() bool { return s == StateAuthenticated }

// ClassifyError maps a validation outcome to its AuthState. A nil error is
// an authenticated request; anything the taxonomy does not recognize is
// UNKNOWN rather than a guess.
func ClassifyError(err error) AuthState {
	if err == nil {
		return StateAuthenticated
	}

	switch errTextCode(err) {
	case TextCodeNoToken:
		return StateNoToken
	case TextCodeEmptyToken:
		return StateEmptyToken
	case TextCodeWrongAuthFormat:
		return StateWrongAuthFormat
	case TextCodeTokenMalformed:
		return StateMalformed
	case TextCodeInvalidSignature:
		return StateInvalidSig
	case TextCodeTokenExpired:
		return StateExpired
	case TextCodeTokenRevoked:
		return StateRevoked
	case TextCodeGlobalRevoked:
		return StateRevokedGlobal
	case TextCodePasswordChanged:
		return StatePasswordChanged
	case TextCodeWrongTokenType:
		return StateWrongTokenType
	case TextCodeUserNotFound:
		return StateUserNotFound
	}

	if goerrors.IsNotFound(err) {
		return StateUserNotFound
	}

	return StateUnknown
}
