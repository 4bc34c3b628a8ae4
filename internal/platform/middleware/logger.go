package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mmh/hms/internal/platform/session"
)

// Logger emits one line per request. Authenticated requests carry the acting
// principal's role and department so a log line alone answers who, from which
// ward, touched what.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			// The principal lands in the context after the session middleware
			// ran, so re-read it here rather than at entry.
			if p := session.PrincipalFromContext(req.Context()); p != nil {
				evt = evt.
					Str("username", p.Username).
					Str("role", p.Role).
					Str("department", p.Department)
			}

			evt.Msg("request")
			return err
		}
	}
}
