// Package middleware provides Echo middleware for logging, metrics, CORS and
// header hygiene.
package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/model"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Requests to the proxy's own /_proxy/ endpoints are logged at debug level.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			level := slog.LevelInfo
			if strings.HasPrefix(req.URL.Path, "/_proxy/") {
				level = slog.LevelDebug
			}

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if outcome, ok := c.Get(model.OutcomeKey).(model.Outcome); ok {
				attrs = append(attrs, "outcome", string(outcome))
			}

			logger.Log(req.Context(), level, "request", attrs...)

			return err
		}
	}
}
