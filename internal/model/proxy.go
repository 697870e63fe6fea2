// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest is an inbound request on its way to the upstream.
// RawPath and RawQuery keep the client's encoding so the upstream sees
// exactly what was sent.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	Path          string
	RawPath       string
	RawQuery      string
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode    int
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64
}

// Outcome is the terminal state a request reached before it was answered.
type Outcome string

const (
	// OutcomePreflight: OPTIONS answered locally, upstream never contacted.
	OutcomePreflight Outcome = "preflight"
	// OutcomeRelayed: upstream response headers arrived and were relayed.
	OutcomeRelayed Outcome = "relayed"
	// OutcomeUpstreamError: no upstream response; the caller got a 500.
	OutcomeUpstreamError Outcome = "upstream_error"
	// OutcomeRejected: the inbound body broke a configured limit while it was
	// being streamed upstream.
	OutcomeRejected Outcome = "rejected"
)

// BodyMethods are the methods whose inbound body is streamed upstream.
// Every other method is forwarded without a body.
var BodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// OutcomeKey is the echo.Context key under which handlers record the Outcome.
const OutcomeKey = "proxy_outcome"
