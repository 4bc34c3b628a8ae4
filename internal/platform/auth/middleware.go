package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mmh/hms/internal/platform/session"
)

// Require returns middleware that checks the authenticated principal's role
// against the capability table for the given action. Runs after the session
// middleware; a request with no principal gets 401, a role outside the
// action's allow list gets 403.
func Require(action Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := session.PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			role, err := ParseRole(p.Role)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "unrecognized role")
			}

			if !Can(role, action) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required role: %s", RolesAllowed(action)))
			}

			return next(c)
		}
	}
}

// RequireAuthenticated returns middleware that only checks for a principal.
// Used on read paths open to any member of staff.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session.PrincipalFromContext(c.Request().Context()) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}
