package auth_test

import (
	"context"
	"testing"

	auth "github.com/quartzlane/go-authkit"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.PrincipalFromContext(ctx)
	assert.False(t, ok, "empty context carries no principal")

	principal := &auth.Principal{}
	ctx = auth.WithPrincipal(ctx, principal)

	got, ok := auth.PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, principal, got)
}
