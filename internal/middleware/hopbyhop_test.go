package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestStripHopByHop(t *testing.T) {
	e := echo.New()
	e.Use(StripHopByHop())

	var got http.Header
	e.GET("/test", func(c echo.Context) error {
		got = c.Request().Header.Clone()
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Connection", "keep-alive, X-Trace-Hop")
	req.Header.Set("X-Trace-Hop", "1")
	req.Header.Set("Proxy-Authorization", "Basic abc")
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	for _, key := range []string{"Connection", "X-Trace-Hop", "Proxy-Authorization"} {
		if v := got.Get(key); v != "" {
			t.Errorf("%s should be stripped, got %q", key, v)
		}
	}
	if v := got.Get("Authorization"); v != "Bearer token" {
		t.Errorf("Authorization = %q, want it kept", v)
	}
}
