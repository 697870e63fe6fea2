package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/config"
)

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, config.HealthzPath, http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(&config.Config{}, "test")
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name        string
		metrics     config.MetricsConfig
		wantMetrics any
	}{
		{"metrics enabled", config.MetricsConfig{Enabled: true, Path: "/_proxy/metrics"}, "/_proxy/metrics"},
		{"metrics disabled", config.MetricsConfig{Path: "/_proxy/metrics"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, config.StatusPath, http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			cfg := &config.Config{
				Server:   config.ServerConfig{Host: "0.0.0.0", Port: 3000},
				Upstream: config.UpstreamConfig{BaseURL: "https://learn.tijusacademy.com"},
				Metrics:  tt.metrics,
			}
			h := NewHealthHandler(cfg, "1.2.3")
			if err := h.Status(c); err != nil {
				t.Fatalf("Status() error = %v", err)
			}

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			want := map[string]any{
				"status":       "ok",
				"version":      "1.2.3",
				"listen_addr":  "0.0.0.0:3000",
				"upstream_url": "https://learn.tijusacademy.com",
				"metrics_path": tt.wantMetrics,
			}
			for key, v := range want {
				if body[key] != v {
					t.Errorf("body.%s = %v, want %v", key, body[key], v)
				}
			}
			if _, ok := body["uptime_seconds"].(float64); !ok {
				t.Errorf("body.uptime_seconds = %v, want a number", body["uptime_seconds"])
			}
		})
	}
}
