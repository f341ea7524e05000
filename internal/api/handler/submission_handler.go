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

type SubmissionHandler struct {
	gameService    *service.GameService
	gradingService *service.GradingService
}

func NewSubmissionHandler(gameService *service.GameService, gradingService *service.GradingService) *SubmissionHandler {
	return &SubmissionHandler{gameService: gameService, gradingService: gradingService}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.submit)
}

type submitRequest struct {
	RoomID   string               `json:"room_id"`
	TargetID string               `json:"target_id"`
	Kind     model.SubmissionKind `json:"kind"`
	Language string               `json:"language,omitempty"`
	Code     string               `json:"code,omitempty"`
	Answer   string               `json:"answer,omitempty"`
}

type submitResponse struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// submit validates synchronously and grades asynchronously: a malformed
// submission fails here with 400, an accepted one returns 202 and its
// result arrives later on the room's event stream.
func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if req.RoomID == "" || req.TargetID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "room_id and target_id are required")
		return
	}

	sub := &model.Submission{
		RoomID:   req.RoomID,
		PlayerID: playerID,
		TargetID: req.TargetID,
		Kind:     req.Kind,
		Language: req.Language,
		Code:     req.Code,
		Answer:   req.Answer,
	}
	if err := h.gradingService.Validate(sub); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	accepted, err := h.gameService.Submit(r.Context(), sub)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, submitResponse{SubmissionID: accepted.ID, Status: "queued"})
}
