package handler

import (
	"codetective/internal/api/middleware"
	"codetective/internal/app/service"
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{roomID}", h.get)
	r.Post("/{roomID}/join", h.join)
	r.Post("/join-by-code", h.joinByCode)
	r.Post("/{roomID}/leave", h.leave)
	r.Post("/{roomID}/ready", h.ready)
	r.Get("/{roomID}/players", h.players)
}

func (h *RoomHandler) list(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.roomService.ListJoinable())
}

func (h *RoomHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	room, err := h.roomService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomService.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) join(w http.ResponseWriter, r *http.Request) {
	player, ok := playerFromContext(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	room, err := h.roomService.Join(r.Context(), chi.URLParam(r, "roomID"), player)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, room)
}

type joinByCodeRequest struct {
	Code string `json:"code"`
}

func (h *RoomHandler) joinByCode(w http.ResponseWriter, r *http.Request) {
	player, ok := playerFromContext(r)
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req joinByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	room, err := h.roomService.JoinByCode(r.Context(), req.Code, player)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) leave(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	room, err := h.roomService.Leave(r.Context(), chi.URLParam(r, "roomID"), playerID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, room)
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

func (h *RoomHandler) ready(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.roomService.SetReady(chi.URLParam(r, "roomID"), playerID, req.Ready); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]bool{"ready": req.Ready})
}

func (h *RoomHandler) players(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.roomService.Players(chi.URLParam(r, "roomID")))
}

// playerFromContext builds the roster entry for the authenticated caller.
func playerFromContext(r *http.Request) (*model.Player, bool) {
	playerID, ok := middleware.GetPlayerIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	username, _ := middleware.GetUsernameFromContext(r.Context())
	return &model.Player{ID: playerID, Username: username}, true
}
