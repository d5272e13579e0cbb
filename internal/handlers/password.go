package handlers

import (
	"errors"
	"net/http"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/pkg/httpx"
)

type PasswordCheckRequest struct {
	Password string `json:"password"`
}

// CheckPassword handles POST /api/password/check-password.
func (h *Handler) CheckPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordCheckRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := h.passwords.Check(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrLookupUnavailable) {
			httpx.Error(w, http.StatusBadGateway, "Password check failed")
			return
		}
		h.writeError(w, r, err, "Something went wrong")
		return
	}

	if !out.Found {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"notFound": true,
			"message":  "Password not found in breach database",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"found":           true,
		"count":           out.Count,
		"characteristics": out.Characteristics,
		"anon":            out.Anon,
	})
}
