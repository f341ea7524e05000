package middleware

import (
	"codetective/internal/common"
	"codetective/internal/common/security"
	"codetective/internal/domain/model"
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	PlayerIDCtxKey contextKey = "playerID"
	UsernameCtxKey contextKey = "username"
	RoleCtxKey     contextKey = "role"
)

// Authenticator validates the bearer token placed in context by
// jwtauth.Verifier and copies the player identity into request context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		playerID, err := security.GetPlayerIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		username, err := security.GetUsernameFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		role, err := security.GetRoleFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), PlayerIDCtxKey, playerID)
		ctx = context.WithValue(ctx, UsernameCtxKey, username)
		ctx = context.WithValue(ctx, RoleCtxKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly gates the catalog management endpoints.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(RoleCtxKey).(string)
		if !ok || role != model.RoleAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetPlayerIDFromContext(ctx context.Context) (string, bool) {
	playerID, ok := ctx.Value(PlayerIDCtxKey).(string)
	return playerID, ok
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameCtxKey).(string)
	return username, ok
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleCtxKey).(string)
	return role, ok
}
