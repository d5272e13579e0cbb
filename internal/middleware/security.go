package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/eguard/eguard-backend/pkg/clientip"
	"github.com/eguard/eguard-backend/pkg/httpx"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost. allowedHost is
// a bare hostname; empty disables the check.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				httpx.Error(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPLimiter keeps one token bucket per client IP. Idle buckets are dropped by
// Sweep, which the background loop started by Start calls periodically.
type IPLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewIPLimiter(limit rate.Limit, burst int) *IPLimiter {
	return &IPLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = l.now()
	return e.limiter.Allow()
}

// Sweep removes buckets idle for longer than limiterTTL.
func (l *IPLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, e := range l.entries {
		if now.Sub(e.lastUse) > limiterTTL {
			delete(l.entries, ip)
		}
	}
}

// Start runs Sweep until stop is closed.
func (l *IPLimiter) Start(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// RateLimit answers 429 once the client's bucket is empty. Requests whose path
// is not matched by match pass through untouched; a nil match covers all.
func RateLimit(l *IPLimiter, trustProxy bool, match func(path string) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if match != nil && !match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(clientip.FromRequest(r, trustProxy)) {
				httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "error": message})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var credentialPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

func isCredentialPath(path string) bool {
	return credentialPaths[strings.TrimSuffix(path, "/")]
}

// ProductionSecurity returns the production middleware chain: security
// headers, host check, a global per-IP limit of 1 req/s (burst 10) and a
// stricter 1 req/5s (burst 2) limit on credential routes.
func ProductionSecurity(allowedHost string, trustProxy bool, stop <-chan struct{}) []func(http.Handler) http.Handler {
	global := NewIPLimiter(rate.Limit(1), 10)
	login := NewIPLimiter(rate.Every(5*time.Second), 2)
	global.Start(stop)
	login.Start(stop)

	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		RateLimit(global, trustProxy, nil, "Too many requests. Please slow down."),
		RateLimit(login, trustProxy, isCredentialPath, "Too many login attempts. Please try again later."),
	}
}
