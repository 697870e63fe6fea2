// Package service implements the core proxy forwarding logic.
package service

import (
	"fmt"
	"net/http"
	"net/url"

	"cors-proxy-go/internal/client"
	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/model"
)

// ProxyService translates inbound requests into upstream requests.
type ProxyService struct {
	client  *client.UpstreamClient
	baseURL *url.URL
}

// NewProxyService creates a ProxyService for the configured upstream.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("upstream base_url must use HTTPS; got %q", cfg.Upstream.BaseURL)
	}

	return &ProxyService{
		client:  c,
		baseURL: u,
	}, nil
}

// UpstreamHost returns the value sent as Host on every outbound request.
func (s *ProxyService) UpstreamHost() string {
	return s.baseURL.Host
}

// Forward sends a ProxyRequest upstream and returns the response once its
// headers have arrived. The caller is responsible for closing the response body.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	req, err := s.buildRequest(pr)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	model.StripHopByHop(resp.Header)
	return resp, nil
}

// buildRequest derives the outbound request: same method, path, query and
// headers, Host replaced by the upstream host. Only POST, PUT and PATCH
// carry the inbound body; it is streamed, not buffered.
func (s *ProxyService) buildRequest(pr *model.ProxyRequest) (*http.Request, error) {
	req, err := http.NewRequestWithContext(pr.Ctx, pr.Method, s.upstreamURL(pr), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header = pr.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Del("Host")
	model.StripHopByHop(req.Header)
	req.Host = s.baseURL.Host

	// ContentLength -1 (chunked inbound) stays -1 and is sent chunked.
	if model.BodyMethods[pr.Method] && pr.Body != nil && pr.ContentLength != 0 {
		req.Body = pr.Body
		req.ContentLength = pr.ContentLength
	}

	return req, nil
}

func (s *ProxyService) upstreamURL(pr *model.ProxyRequest) string {
	u := *s.baseURL
	u.Path = pr.Path
	u.RawPath = pr.RawPath
	u.RawQuery = pr.RawQuery
	return u.String()
}
