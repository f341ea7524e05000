package handler

import (
	"codetective/internal/api/middleware"
	"codetective/internal/app/service"
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	taskService *service.TaskService
}

func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", h.listTasks)
	r.Get("/tasks/{taskID}", h.getTask)
	r.Get("/puzzles", h.listPuzzles)
	r.Get("/puzzles/{puzzleID}", h.getPuzzle)
	r.Get("/puzzles/{puzzleID}/hints/{index}", h.hint)

	// Catalog writes are admin-only.
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Post("/tasks", h.createTask)
		admin.Delete("/tasks/{taskID}", h.deleteTask)
		admin.Post("/puzzles", h.createPuzzle)
		admin.Delete("/puzzles/{puzzleID}", h.deletePuzzle)
	})
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	task, err := h.taskService.CreateTask(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	difficulty, limit, offset := listParams(r)
	tasks, err := h.taskService.ListTasks(r.Context(), difficulty, limit, offset)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.taskService.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) createPuzzle(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePuzzleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	puzzle, err := h.taskService.CreatePuzzle(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, puzzle)
}

func (h *TaskHandler) getPuzzle(w http.ResponseWriter, r *http.Request) {
	puzzle, err := h.taskService.GetPuzzle(r.Context(), chi.URLParam(r, "puzzleID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, puzzle)
}

func (h *TaskHandler) listPuzzles(w http.ResponseWriter, r *http.Request) {
	difficulty, limit, offset := listParams(r)
	puzzles, err := h.taskService.ListPuzzles(r.Context(), difficulty, limit, offset)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, puzzles)
}

func (h *TaskHandler) deletePuzzle(w http.ResponseWriter, r *http.Request) {
	if err := h.taskService.DeletePuzzle(r.Context(), chi.URLParam(r, "puzzleID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) hint(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Hint index must be a number")
		return
	}
	hint, err := h.taskService.Hint(r.Context(), chi.URLParam(r, "puzzleID"), index)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"hint": hint})
}

func listParams(r *http.Request) (model.Difficulty, int, int) {
	difficulty := model.Difficulty(r.URL.Query().Get("difficulty"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return difficulty, limit, offset
}
