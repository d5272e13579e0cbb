package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/eguard/eguard-backend/pkg/httpx"
	"github.com/eguard/eguard-backend/pkg/slogx"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Health answers GET /health. Every named dependency is pinged; a failing one
// turns the response into a 503.
func Health(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				slogx.FromContext(r.Context()).Warn("health check failed", "dependency", name, slog.Any("error", err))
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "up"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		httpx.WriteJSON(w, status, map[string]any{
			"success": status == http.StatusOK,
			"status":  state,
			"checks":  checks,
		})
	}
}
