// Package guard provides the bearer-token route guard. It classifies the
// transport-level failure modes (missing header, empty token, wrong
// scheme) before handing the raw token to the validator, so the error
// taxonomy is complete before any cryptography runs.
package guard

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Text codes mirrored from the auth package to avoid an import cycle;
// the classifier keys on the string values.
const (
	textCodeNoToken         = "NO_TOKEN"
	textCodeEmptyToken      = "EMPTY_TOKEN"
	textCodeWrongAuthFormat = "WRONG_AUTH_FORMAT"
)

var (
	// ErrNoToken is returned when the lookup source carries no credential at all.
	ErrNoToken = goerrors.New("no authentication token presented", goerrors.CategoryAuth).
			WithTextCode(textCodeNoToken).
			WithCode(goerrors.CodeUnauthorized)

	// ErrEmptyToken is returned when the scheme is present but the token is blank.
	ErrEmptyToken = goerrors.New("authentication token is empty", goerrors.CategoryAuth).
			WithTextCode(textCodeEmptyToken).
			WithCode(goerrors.CodeUnauthorized)

	// ErrWrongAuthFormat is returned when the header does not match the auth scheme.
	ErrWrongAuthFormat = goerrors.New("malformed authorization header", goerrors.CategoryAuth).
				WithTextCode(textCodeWrongAuthFormat).
				WithCode(goerrors.CodeUnauthorized)
)

// Validator checks a raw token and returns the validated principal.
// It mirrors the auth package TokenService bound to an expected kind.
type Validator func(ctx context.Context, tokenString string) (any, error)

// RoleCarrier is the slice of the principal surface the guard needs for
// the optional role check.
type RoleCarrier interface {
	HasRole(role string) bool
}

type Config struct {
	// Filter skips the guard for matching requests
	Filter func(router.Context) bool
	// SuccessHandler runs after the principal is stored; defaults to Next
	SuccessHandler router.HandlerFunc
	// ErrorHandler shapes the response for every failure
	ErrorHandler router.ErrorHandler
	// Validate is required: it receives the extracted raw token
	Validate Validator
	// ContextKey is the locals key the principal is stored under
	ContextKey string
	// TokenLookup is a comma list of "source:name" pairs, e.g.
	// "header:Authorization,cookie:session"
	TokenLookup string
	// AuthScheme guards the header source, "Bearer" by default
	AuthScheme string
	// RequiredRole rejects principals missing the role tag
	RequiredRole string
	// ContextEnricher propagates the principal into the request context
	ContextEnricher func(ctx context.Context, principal any) context.Context
}

var defaultTokenLookup = "header:" + router.HeaderAuthorization

// New builds the guard middleware.
func New(config ...Config) router.MiddlewareFunc {
	cfg := withDefaults(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := extractRawToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			principal, err := cfg.Validate(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if cfg.RequiredRole != "" {
				carrier, ok := principal.(RoleCarrier)
				if !ok || !carrier.HasRole(cfg.RequiredRole) {
					return cfg.ErrorHandler(ctx, goerrors.New(
						"access denied: missing required role",
						goerrors.CategoryAuthz,
					).WithCode(goerrors.CodeForbidden))
				}
			}

			ctx.Locals(cfg.ContextKey, principal)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), principal))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func withDefaults(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validate == nil {
		panic("AUTH: guard middleware configuration: Validate is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "principal"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// extractRawToken walks the lookup sources in order and returns the first
// token found. When every source is empty the failure reflects the first
// source's reason, which keeps header diagnostics precise.
func extractRawToken(ctx router.Context, cfg Config) (string, error) {
	var firstErr error

	for _, source := range strings.Split(cfg.TokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(source), ":", 2)
		if len(parts) != 2 {
			continue
		}

		var raw string
		var err error

		switch parts[0] {
		case "header":
			raw, err = tokenFromHeader(ctx, parts[1], cfg.AuthScheme)
		case "query":
			raw, err = tokenFromValue(ctx.Query(parts[1], ""))
		case "param":
			raw, err = tokenFromValue(ctx.Param(parts[1]))
		case "cookie":
			raw, err = tokenFromValue(ctx.Cookies(parts[1]))
		default:
			continue
		}

		if err == nil {
			return raw, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = ErrNoToken
	}
	return "", firstErr
}

func tokenFromHeader(ctx router.Context, header, authScheme string) (string, error) {
	value := strings.TrimSpace(ctx.GetString(header, ""))
	if value == "" {
		return "", ErrNoToken
	}

	scheme := strings.TrimSpace(authScheme)
	if scheme == "" {
		return value, nil
	}

	if len(value) < len(scheme) || !strings.EqualFold(value[:len(scheme)], scheme) {
		return "", ErrWrongAuthFormat
	}

	rest := value[len(scheme):]
	if rest == "" {
		return "", ErrEmptyToken
	}
	if rest[0] != ' ' {
		return "", ErrWrongAuthFormat
	}

	token := strings.TrimSpace(rest)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

func tokenFromValue(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(value), nil
}
