// Package testutil provides helpers for tests that need a live HTTPS upstream.
package testutil

import (
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cors-proxy-go/internal/config"
)

// UpstreamHost is the host the proxy is configured to reach in tests. The
// httptest certificate is valid for it, so TLS verification stays on.
const UpstreamHost = "example.com"

// NewTLSUpstream starts an HTTPS server running h and returns it together with
// a fully defaulted config that routes the proxy to it: base_url names
// UpstreamHost, connect_addr points at the listener and ca_file trusts the
// server certificate. The server is closed when the test ends.
func NewTLSUpstream(t *testing.T, h http.Handler) (*httptest.Server, *config.Config) {
	t.Helper()

	srv := httptest.NewTLSServer(h)
	t.Cleanup(srv.Close)

	caPath := filepath.Join(t.TempDir(), "upstream-ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(caPath, block, 0o600); err != nil {
		t.Fatalf("write upstream CA: %v", err)
	}

	return srv, NewConfig(config.UpstreamConfig{
		BaseURL:     "https://" + UpstreamHost,
		ConnectAddr: srv.Listener.Addr().String(),
		CAFile:      caPath,
	})
}

// NewConfig returns a Config with the given upstream section and the same
// defaults config.Load would fill in.
func NewConfig(up config.UpstreamConfig) *config.Config {
	if up.IdleTimeoutSeconds == 0 {
		up.IdleTimeoutSeconds = 10
	}
	if up.DialTimeoutSeconds == 0 {
		up.DialTimeoutSeconds = 2
	}
	if up.ResponseHeaderTimeoutSeconds == 0 {
		up.ResponseHeaderTimeoutSeconds = 10
	}
	if up.IdleConnections == 0 {
		up.IdleConnections = 10
	}
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Upstream: up,
		CORS: config.CORSConfig{
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
		},
		Log:     config.LogConfig{Level: "info", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/_proxy/metrics"},
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
