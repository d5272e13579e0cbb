package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eguard/eguard-backend/pkg/clientip"
	"github.com/eguard/eguard-backend/pkg/httpx"
	"github.com/eguard/eguard-backend/pkg/slogx"
)

const (
	// RedisRateLimitWindow is the fixed window length.
	RedisRateLimitWindow = 120 * time.Second
	// RedisRateLimitMax is the number of requests allowed per window.
	RedisRateLimitMax = 60
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "eguard:ratelimit:"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimiter is a fixed-window limiter shared by every instance of the
// service. Redis errors let the request through.
type RedisRateLimiter struct {
	client redis.UniversalClient
	max    int
	window time.Duration
}

func NewRedisRateLimiter(client redis.UniversalClient, max int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, max: max, window: window}
}

// Consume counts one request for subject and returns the count in the current
// window and the time until it resets.
func (l *RedisRateLimiter) Consume(ctx context.Context, subject string) (int, time.Duration, error) {
	windowMs := l.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{RateLimitKeyPrefix + subject}, windowMs).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit script: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit response: %T", raw)
	}
	count, ok1 := values[0].(int64)
	ttl, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("unexpected rate limit values: %T, %T", values[0], values[1])
	}
	return int(count), time.Duration(ttl) * time.Millisecond, nil
}

// Middleware applies the limit per client IP.
func (l *RedisRateLimiter) Middleware(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.FromRequest(r, trustProxy)

			count, reset, err := l.Consume(r.Context(), ip)
			if err != nil {
				slogx.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := l.max - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > l.max {
				retryAfter := int(math.Ceil(reset.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"success":     false,
					"error":       "Rate limit exceeded. Please try again later.",
					"retry_after": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
