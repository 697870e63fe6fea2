package middleware

import (
	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/model"
)

// StripHopByHop returns an Echo middleware that removes hop-by-hop headers,
// and any header listed in Connection, from the inbound request.
func StripHopByHop() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			model.StripHopByHop(c.Request().Header)
			return next(c)
		}
	}
}
