package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/quartzlane/go-authkit/middleware/guard"
)

// FiberGuard protects fiber routes without going through the router
// abstraction. Useful when the host app is plain fiber.
type FiberGuard struct {
	tokens       TokenService
	contextKey   string
	authScheme   string
	requiredRole string
	ErrorHandler fiber.Handler
}

type FiberGuardOption func(*FiberGuard)

func WithFiberRequiredRole(role string) FiberGuardOption {
	return func(g *FiberGuard) {
		g.requiredRole = role
	}
}

func NewFiberGuard(tokens TokenService, cfg Config, opts ...FiberGuardOption) *FiberGuard {
	g := &FiberGuard{
		tokens:     tokens,
		contextKey: cfg.GetContextKey(),
		authScheme: cfg.GetAuthScheme(),
	}

	if g.contextKey == "" {
		g.contextKey = "principal"
	}

	if g.authScheme == "" {
		g.authScheme = "Bearer"
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.ErrorHandler == nil {
		g.ErrorHandler = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"state": StateNoToken.String(),
			})
		}
	}

	return g
}

// Handler returns the fiber middleware. The validated principal is
// stored in locals under the configured context key.
func (g *FiberGuard) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := g.bearerToken(c)
		if err != nil {
			return g.reject(c, err)
		}

		principal, err := g.tokens.Validate(c.UserContext(), raw, KindAccess, uuid.Nil)
		if err != nil {
			return g.reject(c, err)
		}

		if g.requiredRole != "" && !principal.HasRole(g.requiredRole) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"state": StateUnknown.String(),
			})
		}

		c.Locals(g.contextKey, principal)
		c.SetUserContext(WithPrincipal(c.UserContext(), principal))

		return c.Next()
	}
}

func (g *FiberGuard) bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", guard.ErrNoToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, g.authScheme) {
		return "", guard.ErrWrongAuthFormat
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", guard.ErrEmptyToken
	}

	return token, nil
}

func (g *FiberGuard) reject(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"state": ClassifyError(err).String(),
	})
}

// PrincipalFromFiber pulls the validated principal the guard stored.
func PrincipalFromFiber(c *fiber.Ctx, key string) (*Principal, bool) {
	if key == "" {
		key = "principal"
	}
	principal, ok := c.Locals(key).(*Principal)
	return principal, ok
}
