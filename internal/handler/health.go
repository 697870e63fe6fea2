// Package handler contains the Echo handlers: the forwarding proxy and the
// proxy's own health and status endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/config"
)

// Version is the build version reported by the status endpoint.
type Version string

// HealthHandler answers the proxy's own liveness and status checks. Neither
// endpoint contacts the upstream.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	started time.Time
}

// statusBody is the JSON document served at config.StatusPath.
type statusBody struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ListenAddr    string `json:"listen_addr"`
	UpstreamURL   string `json:"upstream_url"`
	MetricsPath   string `json:"metrics_path,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, started: time.Now()}
}

// Healthz reports that the listener is up.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status describes the running proxy: build, listen address and upstream.
func (h *HealthHandler) Status(c echo.Context) error {
	body := statusBody{
		Status:        "ok",
		Version:       string(h.version),
		ListenAddr:    h.cfg.Server.Addr(),
		UpstreamURL:   h.cfg.Upstream.BaseURL,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.cfg.Metrics.Enabled {
		body.MetricsPath = h.cfg.Metrics.Path
	}
	return c.JSON(http.StatusOK, body)
}
