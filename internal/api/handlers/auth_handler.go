package handlers

import (
	"net/http"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/pkg/security"
)

// AuthHandler exposes session helpers
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// ValidatePassword handles POST /api/auth/validate-password
func (h *AuthHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	respondWithJSON(w, http.StatusOK, security.ValidatePassword(req.Password))
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized, "Debes iniciar sesión")
		return
	}
	respondWithJSON(w, http.StatusOK, identity)
}
