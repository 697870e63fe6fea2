package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/metrics"
	"cors-proxy-go/internal/model"
	"cors-proxy-go/internal/service"
)

// errorPrefix starts every upstream failure body sent to the caller.
const errorPrefix = "Proxy Error: "

// ProxyHandler forwards every request it receives to the upstream.
type ProxyHandler struct {
	service     *service.ProxyService
	logger      *slog.Logger
	metrics     *metrics.Metrics
	idleTimeout time.Duration
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter may be nil.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service:     svc,
		logger:      logger.With("component", "proxy_handler"),
		metrics:     m,
		idleTimeout: time.Duration(cfg.Upstream.IdleTimeoutSeconds) * time.Second,
	}
}

// Handle proxies the request upstream and streams the response back with
// Access-Control-Allow-Origin forced to "*".
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	pr := &model.ProxyRequest{
		Ctx:           ctx,
		Method:        req.Method,
		Path:          req.URL.Path,
		RawPath:       req.URL.RawPath,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	h.logger.Info("proxying request",
		"method", req.Method,
		"upstream", h.service.UpstreamHost(),
		"path", req.URL.RequestURI(),
	)

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.upstreamError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	h.record(c, model.OutcomeRelayed)

	header := c.Response().Header()
	for key, vals := range resp.Header {
		header[key] = vals
	}
	header.Set(model.HeaderAllowOrigin, model.AllowAnyOrigin)

	c.Response().WriteHeader(resp.StatusCode)

	// Once the status is written a mid-stream failure can only truncate the
	// body; it is logged, not reported to the caller.
	var dst io.Writer = c.Response()
	if resp.ContentLength < 0 {
		dst = flushWriter{c.Response()}
	}
	var src io.Reader = resp.Body
	var idle *idleReader
	if h.idleTimeout > 0 {
		idle = newIdleReader(resp.Body, h.idleTimeout, cancel)
		defer idle.stop()
		src = idle
	}
	if _, err := io.Copy(dst, src); err != nil {
		reason := failureReason(err)
		if idle != nil && idle.stalled.Load() {
			reason = "idle_timeout"
		}
		h.logger.Error("streaming response body",
			"err", err,
			"reason", reason,
			"path", req.URL.Path,
		)
	}

	return nil
}

// upstreamError answers with 500 and the error text. No retry is attempted.
// A limit hit while reading the inbound body keeps its own status.
func (h *ProxyHandler) upstreamError(c echo.Context, err error) error {
	req := c.Request()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		h.logger.Warn("inbound body rejected",
			"code", httpErr.Code,
			"method", req.Method,
			"path", req.URL.Path,
		)
		h.record(c, model.OutcomeRejected)
		return httpErr
	}

	h.logger.Error("proxy request error",
		"err", err,
		"reason", failureReason(err),
		"method", req.Method,
		"path", req.URL.Path,
	)
	h.record(c, model.OutcomeUpstreamError)

	c.Response().Header().Set(model.HeaderAllowOrigin, model.AllowAnyOrigin)
	return c.String(http.StatusInternalServerError, errorPrefix+describe(err))
}

func (h *ProxyHandler) record(c echo.Context, outcome model.Outcome) {
	c.Set(model.OutcomeKey, outcome)
	if h.metrics != nil {
		h.metrics.Outcomes.WithLabelValues(string(outcome)).Inc()
	}
}

// failureReason buckets an upstream error for logs.
func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "client_canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "transport"
	}

	return "unknown"
}

// describe returns the transport-level cause without the method and URL that
// *url.Error prepends.
func describe(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// idleReader cancels the upstream exchange when no body bytes arrive for
// idle. The deadline restarts with every chunk read.
type idleReader struct {
	r       io.Reader
	idle    time.Duration
	timer   *time.Timer
	stalled atomic.Bool
}

func newIdleReader(r io.Reader, idle time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, idle: idle}
	ir.timer = time.AfterFunc(idle, func() {
		ir.stalled.Store(true)
		cancel()
	})
	return ir
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}

func (r *idleReader) stop() {
	r.timer.Stop()
}

// flushWriter pushes every chunk to the client as soon as it is written.
type flushWriter struct {
	res *echo.Response
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.res.Write(p)
	if err == nil {
		f.res.Flush()
	}
	return n, err
}
