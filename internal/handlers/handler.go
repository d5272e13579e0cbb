package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/services"
	"github.com/eguard/eguard-backend/pkg/clientip"
	"github.com/eguard/eguard-backend/pkg/httpx"
	"github.com/eguard/eguard-backend/pkg/slogx"
)

const maxBodyBytes = 1 << 20

// Handler serves the JSON API.
type Handler struct {
	auth       *services.AuthService
	checks     *services.CheckService
	dashboard  *services.DashboardService
	passwords  *services.PasswordService
	production bool
	trustProxy bool
}

type Options struct {
	Production bool
	TrustProxy bool
}

func New(auth *services.AuthService, checks *services.CheckService, dashboard *services.DashboardService, passwords *services.PasswordService, opts Options) *Handler {
	return &Handler{
		auth:       auth,
		checks:     checks,
		dashboard:  dashboard,
		passwords:  passwords,
		production: opts.Production,
		trustProxy: opts.TrustProxy,
	}
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) clientIP(r *http.Request) string {
	return clientip.FromRequest(r, h.trustProxy)
}

// writeError maps err to a status code. serverMsg is the client message for
// unexpected failures.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, serverMsg string) {
	var invalid *apperr.InvalidRecordError

	switch {
	case errors.As(err, &invalid):
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid data",
			"details": invalid.Messages(),
		})
	case errors.Is(err, apperr.ErrBadRequest):
		httpx.Error(w, http.StatusBadRequest, apperr.PublicMessage(err, "Bad request"))
	case errors.Is(err, apperr.ErrUnauthenticated):
		httpx.Error(w, http.StatusUnauthorized, apperr.PublicMessage(err, "User not authenticated"))
	case errors.Is(err, apperr.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, apperr.PublicMessage(err, "Not found"))
	case errors.Is(err, apperr.ErrConflict):
		httpx.Error(w, http.StatusConflict, apperr.PublicMessage(err, "Conflict"))
	case errors.Is(err, apperr.ErrLookupUnavailable):
		httpx.Error(w, http.StatusBadGateway, "Breach lookup service unavailable")
	case errors.Is(err, services.ErrMissingSecret):
		slogx.FromContext(r.Context()).Error("JWT_SECRET is not configured")
		httpx.Error(w, http.StatusInternalServerError, "Server configuration error")
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		body := map[string]any{"success": false, "error": serverMsg}
		if !h.production {
			body["message"] = err.Error()
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, body)
	}
}
