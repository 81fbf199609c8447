package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware resolves the bearer token into a Principal on the request
// context. It never rejects on its own: route groups decide what an
// unauthenticated request means via RequireAuthenticated and RequireRole.
func Middleware(codec *TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return next(c)
			}

			if p, ok := codec.Parse(parts[1]); ok {
				ctx := WithPrincipal(c.Request().Context(), p)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// RequireAuthenticated guards protected routes. Unauthenticated requests get
// a 401 carrying the login path the client should navigate to.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFromContext(c.Request().Context()); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error":    "authentication required",
					"location": "/login",
				})
			}
			return next(c)
		}
	}
}

// RejectAuthenticated guards auth-only routes (login, signup). An already
// authenticated principal is redirected to its role's dashboard.
func RejectAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p, ok := PrincipalFromContext(c.Request().Context()); ok {
				return echo.NewHTTPError(http.StatusConflict, map[string]string{
					"error":    "already authenticated",
					"location": HomePath(p.Role),
				})
			}
			return next(c)
		}
	}
}

// RequireRole checks that the principal has one of the given roles.
// Deny by default: no principal or a role outside the list is forbidden.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error":    "authentication required",
					"location": "/login",
				})
			}
			for _, required := range roles {
				if p.Role == required {
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}
