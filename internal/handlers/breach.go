package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/middleware"
	"github.com/eguard/eguard-backend/internal/models"
	"github.com/eguard/eguard-backend/internal/services"
	"github.com/eguard/eguard-backend/pkg/httpx"
	"github.com/eguard/eguard-backend/pkg/utils"
)

type CheckRequest struct {
	Email string `json:"email"`
}

// LogRequest is the legacy client-asserted result. Pointers distinguish an
// omitted field from its zero value.
type LogRequest struct {
	Email         string                `json:"email"`
	Breached      *bool                 `json:"breached"`
	Breaches      *int                  `json:"breaches"`
	BreachDetails []models.BreachDetail `json:"breachDetails"`
}

// CheckResultResponse is the "result" object of lookup and check responses.
type CheckResultResponse struct {
	Email         string                `json:"email"`
	IsBreached    bool                  `json:"isBreached"`
	BreachCount   int                   `json:"breachCount"`
	BreachDetails []models.BreachDetail `json:"breachDetails"`
	Status        string                `json:"status"`
	LookupStatus  string                `json:"lookupStatus,omitempty"`
	CheckedAt     *time.Time            `json:"checkedAt,omitempty"`
}

func resultResponse(email string, res models.BreachResult, lookupStatus string, checkedAt *time.Time) CheckResultResponse {
	status := services.StatusSafe
	if res.Breached {
		status = services.StatusCompromised
	}
	details := res.Details
	if details == nil {
		details = []models.BreachDetail{}
	}
	return CheckResultResponse{
		Email:         email,
		IsBreached:    res.Breached,
		BreachCount:   res.Count,
		BreachDetails: details,
		Status:        status,
		LookupStatus:  lookupStatus,
		CheckedAt:     checkedAt,
	}
}

// Lookup handles GET /api/breach?email=. Nothing is stored.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	out, err := h.checks.Lookup(r.Context(), email)
	if err != nil {
		if errors.Is(err, apperr.ErrLookupUnavailable) {
			httpx.Error(w, http.StatusBadGateway, "Failed to fetch breach analytics")
			return
		}
		h.writeError(w, r, err, "Failed to fetch breach analytics")
		return
	}

	body := map[string]any{
		"success": true,
		"result":  resultResponse(utils.NormalizeEmail(email), out.Result, out.LookupStatus, nil),
	}
	if !out.Result.Breached {
		body["message"] = "Email not found in any known breaches"
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}

// Check handles POST /api/breach/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := h.checks.Check(r.Context(), services.CheckInput{
		UserID:    middleware.UserID(r.Context()),
		Email:     req.Email,
		IPAddress: h.clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err, "Server error during email check")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Email check completed successfully",
		"result":    resultResponse(out.Email, out.Result, out.Record.LookupStatus, &out.Record.CheckedAt),
		"log":       out.Record,
		"userStats": out.Stats,
	})
}

// Log handles POST /api/breach/log.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if !decode(w, r, &req) {
		return
	}

	record, err := h.checks.Log(r.Context(), services.LogInput{
		UserID:        middleware.UserID(r.Context()),
		Email:         req.Email,
		Breached:      req.Breached,
		Breaches:      req.Breaches,
		BreachDetails: req.BreachDetails,
		IPAddress:     h.clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Breach check logged successfully",
		"log":     record,
	})
}

// History handles GET /api/breach/history?page=&limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page")
	limit := queryInt(r, "limit")

	out, err := h.checks.History(r.Context(), middleware.UserID(r.Context()), page, limit)
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"history":    out.History,
		"pagination": out.Pagination,
		"stats":      out.Stats,
		"userId":     out.UserID,
	})
}

// Stats handles GET /api/breach/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.checks.Stats(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// GetCheck handles GET /api/breach/check/{checkId}.
func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	record, err := h.checks.Get(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "checkId"))
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "record": record})
}

// DeleteCheck handles DELETE /api/breach/check/{checkId}.
func (h *Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.checks.Delete(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "checkId"))
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Email check record deleted successfully",
		"deletedRecord": deleted,
	})
}

// queryInt returns 0 for missing or non-numeric values, leaving defaults to the
// service.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
