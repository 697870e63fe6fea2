package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/metrics"
	"cors-proxy-go/internal/model"
)

// CORS returns an Echo middleware that puts the permissive CORS header set on
// every response and answers every OPTIONS request with 200 and an empty body
// without calling the next handler.
// Headers are set whether or not the request carries an Origin.
func CORS(cfg config.CORSConfig, m *metrics.Metrics) echo.MiddlewareFunc {
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(model.HeaderAllowOrigin, model.AllowAnyOrigin)
			h.Set(model.HeaderAllowMethods, allowMethods)
			h.Set(model.HeaderAllowHeaders, allowHeaders)

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			c.Set(model.OutcomeKey, model.OutcomePreflight)
			if m != nil {
				m.Outcomes.WithLabelValues(string(model.OutcomePreflight)).Inc()
			}
			return c.NoContent(http.StatusOK)
		}
	}
}
