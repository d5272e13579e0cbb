package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eguard/eguard-backend/internal/services"
	"github.com/eguard/eguard-backend/pkg/httpx"
	"github.com/eguard/eguard-backend/pkg/slogx"
)

// TokenVerifier is satisfied by *services.TokenService.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")) == "" {
				httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "No token, authorization denied",
					"hint":    "Include 'Bearer <token>' in Authorization header",
				})
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

			userID, err := v.Verify(raw)
			if err != nil {
				switch {
				case errors.Is(err, services.ErrMissingSecret):
					logger.Error("JWT_SECRET is not configured")
					httpx.Error(w, http.StatusInternalServerError, "Server configuration error")
				case errors.Is(err, services.ErrExpiredToken):
					httpx.Error(w, http.StatusUnauthorized, "Token expired")
				case errors.Is(err, services.ErrMalformedClaims):
					httpx.Error(w, http.StatusUnauthorized, "Invalid token structure")
				default:
					logger.Info("token rejected", slog.Any("error", err))
					httpx.Error(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			ctx = WithUserID(ctx, userID)
			ctx = slogx.With(ctx, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
