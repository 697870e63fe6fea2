package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The proxy's
// own endpoints answer GET only; other standard methods on those paths get
// 405. Every remaining path and method is forwarded upstream.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	reserveGET(e, config.HealthzPath, health.Healthz)
	reserveGET(e, config.StatusPath, health.Status)

	if cfg.Metrics.Enabled {
		reserveGET(e, cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any("/", proxy.Handle)
	e.Any("/*", proxy.Handle)
	// Any only covers echo's built-in method set; extension methods such as
	// PURGE land here.
	e.RouteNotFound("/*", proxy.Handle)
}

func reserveGET(e *echo.Echo, path string, h echo.HandlerFunc) {
	e.Any(path, getOnly)
	e.GET(path, h)
}

func getOnly(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAllow, http.MethodGet)
	return echo.ErrMethodNotAllowed
}
