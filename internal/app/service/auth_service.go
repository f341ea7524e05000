package service

import (
	"codetective/internal/common"
	"codetective/internal/common/security"
	"codetective/internal/domain/model"
	"codetective/internal/domain/repository"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 24
)

// AuthService issues tokens for the two entry paths: players join with
// just a nickname, admins authenticate with the shared admin password.
type AuthService struct {
	playerRepo        repository.PlayerRepository // optional, nil runs nickname-only
	adminPasswordHash string
}

func NewAuthService(playerRepo repository.PlayerRepository, adminPassword string) (*AuthService, error) {
	hash, err := security.HashPassword(adminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &AuthService{playerRepo: playerRepo, adminPasswordHash: hash}, nil
}

type JoinRequest struct {
	Username string `json:"username"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type AuthResponse struct {
	Profile *model.PlayerProfile `json:"profile"`
	Token   string               `json:"token"`
}

// Join logs a player in by nickname, creating the profile on first use.
// There is no player password; the nickname is the identity, and the
// returned token is what ties later requests to it.
func (s *AuthService) Join(ctx context.Context, req JoinRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return nil, fmt.Errorf("username must be %d to %d characters: %w", minUsernameLength, maxUsernameLength, common.ErrValidation)
	}

	profile, err := s.findOrCreateProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	token, err := security.GenerateToken(profile.ID, profile.Username, model.RolePlayer)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Profile: profile, Token: token}, nil
}

func (s *AuthService) findOrCreateProfile(ctx context.Context, username string) (*model.PlayerProfile, error) {
	if s.playerRepo == nil {
		return &model.PlayerProfile{ID: uuid.NewString(), Username: username}, nil
	}

	profile, err := s.playerRepo.FindByUsername(ctx, username)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	profile = &model.PlayerProfile{ID: uuid.NewString(), Username: username}
	if err := s.playerRepo.Create(ctx, profile); err != nil {
		// A racing join with the same nickname can win the insert; reuse
		// its profile instead of failing the loser.
		if errors.Is(err, common.ErrConflict) {
			return s.playerRepo.FindByUsername(ctx, username)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// AdminLogin exchanges the shared admin password for an admin token.
func (s *AuthService) AdminLogin(_ context.Context, req AdminLoginRequest) (*AuthResponse, error) {
	if req.Password == "" {
		return nil, common.ErrBadRequest
	}
	if !security.CheckPasswordHash(req.Password, s.adminPasswordHash) {
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken("admin", "admin", model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token}, nil
}

// Profile returns a player's persisted stats.
func (s *AuthService) Profile(ctx context.Context, playerID string) (*model.PlayerProfile, error) {
	if s.playerRepo == nil {
		return nil, common.ErrNotFound
	}
	return s.playerRepo.FindByID(ctx, playerID)
}
