package handlers

import (
	"net/http"

	"github.com/eguard/eguard-backend/internal/middleware"
	"github.com/eguard/eguard-backend/pkg/httpx"
)

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboard.Dashboard(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"user":          dash.User,
		"stats":         dash.Stats,
		"recentLogs":    dash.RecentChecks,
		"securityScore": dash.SecurityScore,
	})
}

// Analytics handles GET /api/dashboard/analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.dashboard.Analytics(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "analytics": analytics})
}
