package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/quartzlane/go-authkit/middleware/guard"
)

// RouteAuthenticator wires the token service into go-router routes. The
// error handlers shape responses from the closed AuthState taxonomy; a
// raw error message never reaches the client.
type RouteAuthenticator struct {
	auth             Authenticator
	tokens           TokenService
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, tokens TokenService, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetRefreshTokenTTL() > 0 {
		cookieDuration = cfg.GetRefreshTokenTTL()
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		tokens:         tokens,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute guards a route with the access-token check. The
// validated principal lands in locals under the configured context key.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.AuthErrorHandler
	}

	return guard.New(guard.Config{
		ErrorHandler: errorHandler,
		ContextKey:   a.cfg.GetContextKey(),
		TokenLookup:  a.cfg.GetTokenLookup(),
		AuthScheme:   a.cfg.GetAuthScheme(),
		Validate: func(ctx context.Context, tokenString string) (any, error) {
			// the guard has no resolved principal yet, so the subject
			// embedded in the token is the claimed account
			return a.tokens.Validate(ctx, tokenString, KindAccess, uuid.Nil)
		},
		ContextEnricher: func(ctx context.Context, principal any) context.Context {
			if p, ok := principal.(*Principal); ok {
				return WithPrincipal(ctx, p)
			}
			return ctx
		},
	})
}

// GetRoutePrincipal extracts the validated principal the guard stored.
func GetRoutePrincipal(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = "principal"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	principal, ok := raw.(*Principal)
	return principal, ok
}

// Login authenticates the payload and sets the refresh-token cookie. The
// access token is returned in the response body by the caller.
func (a *RouteAuthenticator) Login(ctx router.Context, identifier, password string) (*TokenPair, error) {
	pair, err := a.auth.Login(ctx.Context(), identifier, password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.setCookieToken(ctx, pair.RefreshToken, a.cookieDuration)
	return pair, nil
}

// Refresh exchanges the refresh-token cookie for a fresh access token.
func (a *RouteAuthenticator) Refresh(ctx router.Context) (string, error) {
	refresh := ctx.Cookies(a.cfg.GetContextKey())
	if refresh == "" {
		return "", guard.ErrNoToken
	}

	access, err := a.auth.Refresh(ctx.Context(), refresh)
	if err != nil {
		a.Logger.Info("Refresh rejected", "state", ClassifyError(err).String())
		return "", err
	}

	return access, nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// defaultAuthErrHandler answers every authentication failure with the
// same status and a state tag; wrong-type and malformed stay
// indistinguishable in the response shape, the precise taxonomy goes to
// the logs only.
func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	state := ClassifyError(err)

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication rejected",
		"state", state.String(),
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.JSON(http.StatusUnauthorized, router.ViewContext{
		"state": state.String(),
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(richErr.Code, router.ViewContext{
			"state": StateUnknown.String(),
		})
	}
}
