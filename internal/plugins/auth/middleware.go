package auth

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tedygabrielmoisa/authserver/internal/apperror"
)

// contextKeyPrincipal is the identity slot in the Echo context. Other
// plugins read it through GetPrincipal.
const contextKeyPrincipal = "auth_principal"

// Paths the authenticators treat specially.
const (
	pathLogin              = "/auth/login"
	pathRegister           = "/auth/register"
	pathCheckAuthenticated = "/auth/checkAuthenticated"
)

// refreshCookieName is the cookie carrying the refresh token.
const refreshCookieName = "token"

// RefreshTokenAuthenticator returns middleware that establishes identity
// from the refresh cookie. It only runs on /auth/checkAuthenticated; every
// other path passes straight through.
func RefreshTokenAuthenticator(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path != pathCheckAuthenticated || GetPrincipal(c) != nil {
				return next(c)
			}

			token := getRefreshToken(c)
			if token == "" {
				return next(c)
			}

			p, err := service.AuthenticateRefreshToken(c.Request().Context(), token)
			if err != nil {
				return passThrough(c, next, "refresh", err)
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// AccessTokenAuthenticator returns middleware that establishes identity
// from an "Authorization: Bearer" header. The login, register and
// checkAuthenticated endpoints are skipped.
func AccessTokenAuthenticator(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().URL.Path {
			case pathLogin, pathRegister, pathCheckAuthenticated:
				return next(c)
			}
			if GetPrincipal(c) != nil {
				return next(c)
			}

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			p, err := service.AuthenticateAccessToken(c.Request().Context(), token)
			if err != nil {
				return passThrough(c, next, "access", err)
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// passThrough continues the chain unauthenticated on an auth failure and
// aborts with a 500 on anything else.
func passThrough(c echo.Context, next echo.HandlerFunc, filter string, err error) error {
	if !IsAuthFailure(err) {
		return apperror.NewInternal(err)
	}
	slog.Debug("token rejected",
		slog.String("filter", filter),
		slog.String("path", c.Request().URL.Path),
		slog.String("reason", err.Error()),
	)
	return next(c)
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// --- Identity slot ---

// GetPrincipal retrieves the authenticated identity from the Echo context.
// Returns nil if no authenticator established one.
func GetPrincipal(c echo.Context) *Principal {
	p, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// setPrincipal fills the identity slot unless it is already set.
func setPrincipal(c echo.Context, p *Principal) {
	if GetPrincipal(c) != nil {
		return
	}
	c.Set(contextKeyPrincipal, p)
}

// clearPrincipal empties the identity slot.
func clearPrincipal(c echo.Context) {
	c.Set(contextKeyPrincipal, nil)
}
