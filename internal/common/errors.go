package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer     = errors.New("internal server error")
	ErrServiceUnavailable = errors.New("service unavailable") // e.g. execution backend down

	// Game-specific kinds. Every rejected action carries one of these so
	// callers can branch on errors.Is while the wrapped message stays
	// suitable for direct display.
	ErrRoomFull          = errors.New("room is full")
	ErrNotJoinable       = errors.New("room is not accepting players")
	ErrInvalidCode       = errors.New("invalid join code")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrSessionClosed     = errors.New("game session is closed")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCode) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrNotJoinable) || errors.Is(err, ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrSessionClosed) {
		return http.StatusGone
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
