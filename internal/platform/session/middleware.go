package session

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// CookieName is the cookie carrying the signed session token.
	CookieName = "hms_session"

	// CSRFHeader carries the CSRF token on mutating requests, and the
	// rotated token on their responses.
	CSRFHeader = "X-CSRF-Token"
)

// Middleware validates the session cookie, loads the session row and attaches
// the resulting Principal to the request context. Requests without a valid,
// live session get 401.
func Middleware(store Store, issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			sid, err := issuer.Parse(cookie.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}

			sess, err := store.Get(c.Request().Context(), sid)
			if err != nil {
				switch err {
				case ErrNotFound, ErrExpired, ErrRevoked:
					return echo.NewHTTPError(http.StatusUnauthorized, "session is no longer valid")
				default:
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session lookup failed")
				}
			}

			p := &Principal{
				UserID:     sess.UserID,
				SessionID:  sess.ID,
				Username:   sess.Username,
				Role:       sess.Role,
				Department: sess.Department,
			}
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			c.Set("principal", p)

			return next(c)
		}
	}
}

// CSRF enforces the double-submit check on mutating requests. The header
// token must match the one stored on the session; on a match the token is
// rotated and the new value is returned in the response header, so the
// response always carries the currently valid token.
//
// Runs after Middleware: it needs the Principal.
func CSRF(store Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			sess, err := store.Get(c.Request().Context(), p.SessionID)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "csrf validation failed")
			}

			given := c.Request().Header.Get(CSRFHeader)
			if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(sess.CSRFToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "csrf token mismatch")
			}

			// Rotation happens before the handler so the replacement header
			// is set ahead of any response write. A mutation that then fails
			// has spent its token; the client retries with the one returned
			// here.
			rotated, err := store.RotateCSRF(c.Request().Context(), p.SessionID)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "csrf rotation failed")
			}
			c.Response().Header().Set(CSRFHeader, rotated)

			return next(c)
		}
	}
}

// SetCookie writes the session cookie on a login response.
func SetCookie(c echo.Context, token string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on logout.
func ClearCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
