package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"` // machine-checkable error kind
}

// kindOf maps a domain error to a stable identifier the frontend can
// branch on without parsing the display message.
func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrNotJoinable):
		return "not_joinable"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	default:
		return "internal"
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError writes the error with both its display message
// and its machine-checkable kind, using the shared status mapping.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	RespondWithJSON(w, HTTPStatusFromError(err), ErrorResponse{Error: err.Error(), Kind: kindOf(err)})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
