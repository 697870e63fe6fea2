package model

import (
	"net/http"
	"strings"
)

// Access-Control-* header names set by the proxy.
const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
)

// AllowAnyOrigin is the only Access-Control-Allow-Origin value the proxy emits.
const AllowAnyOrigin = "*"

// hopByHopHeaders are connection-scoped and never forwarded (RFC 9110 §7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// StripHopByHop deletes hop-by-hop headers from h in place, including any
// header named as a token in Connection.
func StripHopByHop(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
