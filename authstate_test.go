package auth_test

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/quartzlane/go-authkit"
	"github.com/quartzlane/go-authkit/middleware/guard"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want auth.AuthState
	}{
		{"nil error is authenticated", nil, auth.StateAuthenticated},
		{"missing token", guard.ErrNoToken, auth.StateNoToken},
		{"empty token", guard.ErrEmptyToken, auth.StateEmptyToken},
		{"wrong auth format", guard.ErrWrongAuthFormat, auth.StateWrongAuthFormat},
		{
			"not-found maps to user not found",
			goerrors.New("no such record", goerrors.CategoryNotFound),
			auth.StateUserNotFound,
		},
		{
			"identity not found",
			auth.ErrIdentityNotFound,
			auth.StateUserNotFound,
		},
		{
			"plain errors are unknown, never guessed",
			errors.New("disk on fire"),
			auth.StateUnknown,
		},
		{
			"rich errors without a text code are unknown",
			goerrors.New("wrapped infra failure", goerrors.CategoryInternal),
			auth.StateUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.ClassifyError(tc.err))
		})
	}
}

func TestAuthState_Authenticated(t *testing.T) {
	assert.True(t, auth.StateAuthenticated.Authenticated())

	for _, state := range []auth.AuthState{
		auth.StateNoToken,
		auth.StateEmptyToken,
		auth.StateMalformed,
		auth.StateWrongAuthFormat,
		auth.StateInvalidSig,
		auth.StateExpired,
		auth.StateRevoked,
		auth.StateRevokedGlobal,
		auth.StatePasswordChanged,
		auth.StateWrongTokenType,
		auth.StateUserNotFound,
		auth.StateUnknown,
	} {
		assert.False(t, state.Authenticated(), state.String())
	}
}

func TestClassifyError_WrappedErrorsKeepTheirState(t *testing.T) {
	// wrapping with %w must not strip the classification
	wrapped := fmt.Errorf("login failed: %w", auth.ErrIdentityNotFound)

	assert.Equal(t, auth.StateUserNotFound, auth.ClassifyError(wrapped))
}
