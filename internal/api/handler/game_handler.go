package handler

import (
	"codetective/internal/app/service"
	"codetective/internal/common"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{roomID}/start", h.start)
	r.Post("/{roomID}/pause", h.pause)
	r.Post("/{roomID}/resume", h.resume)
	r.Post("/{roomID}/advance-round", h.advanceRound)
	r.Get("/{roomID}/session", h.session)
	r.Get("/{roomID}/leaderboard", h.leaderboard)
	r.Get("/records/{sessionID}", h.record)
}

func (h *GameHandler) start(w http.ResponseWriter, r *http.Request) {
	session, err := h.gameService.Start(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session)
}

func (h *GameHandler) pause(w http.ResponseWriter, r *http.Request) {
	session, err := h.gameService.Pause(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session)
}

func (h *GameHandler) resume(w http.ResponseWriter, r *http.Request) {
	session, err := h.gameService.Resume(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session)
}

func (h *GameHandler) advanceRound(w http.ResponseWriter, r *http.Request) {
	session, err := h.gameService.AdvanceRound(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session)
}

func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.gameService.Session(chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session)
}

func (h *GameHandler) record(w http.ResponseWriter, r *http.Request) {
	record, err := h.gameService.Record(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, record)
}

func (h *GameHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gameService.Leaderboard(chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
