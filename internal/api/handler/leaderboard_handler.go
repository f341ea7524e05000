package handler

import (
	"codetective/internal/app/service"
	"codetective/internal/common"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/global", h.global)
}

func (h *LeaderboardHandler) global(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.leaderboardService.Global(r.Context(), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
