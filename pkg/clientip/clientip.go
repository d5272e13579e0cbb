package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from r.RemoteAddr only, ignoring proxy
// headers.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// FromRequest returns the client IP. With trustProxy set, the first valid
// address in X-Forwarded-For (then X-Real-IP) wins; only enable that behind a
// proxy that overwrites those headers.
func FromRequest(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xr) != nil {
			return xr
		}
	}
	return RealClientIP(r)
}
