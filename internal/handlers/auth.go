package handlers

import (
	"net/http"

	"github.com/eguard/eguard-backend/internal/services"
	"github.com/eguard/eguard-backend/pkg/httpx"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}
