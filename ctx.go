package auth

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal stores a validated principal in the context. This is
// plumbing for the HTTP layer only; core validation and authorization
// calls always take the principal as an explicit argument, so "no
// principal in context" and "anonymous" can never be conflated inside
// this package.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds a previously stored principal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}
