package handler

import (
	"codetective/internal/api/middleware"
	"codetective/internal/app/service"
	"codetective/internal/common"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/join", h.join)
	r.Post("/admin/login", h.adminLogin)
}

// RegisterProfileRoutes adds the endpoints that need a valid token.
func (h *AuthHandler) RegisterProfileRoutes(r chi.Router) {
	r.Get("/", h.profile)
}

func (h *AuthHandler) join(w http.ResponseWriter, r *http.Request) {
	var req service.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.authService.Join(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req service.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	resp, err := h.authService.AdminLogin(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	profile, err := h.authService.Profile(r.Context(), playerID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}
