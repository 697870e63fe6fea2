package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/metrics"
)

// MetricsMiddleware counts and times every inbound request, labelled by
// method, final status and route class (own endpoint or "upstream").
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			begin := time.Now()
			err := next(c)
			elapsed := time.Since(begin).Seconds()

			req := c.Request()
			labels := []string{
				metrics.NormalizeMethod(req.Method),
				strconv.Itoa(finalStatus(c, err)),
				metrics.NormalizeRoute(req.URL.Path),
			}
			m.RequestsTotal.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(elapsed)

			return err
		}
	}
}

// finalStatus is the code the client will see. An *echo.HTTPError is written
// by the error handler after the middleware chain unwinds.
func finalStatus(c echo.Context, err error) int {
	var he *echo.HTTPError
	if err != nil && errors.As(err, &he) {
		return he.Code
	}
	return c.Response().Status
}
