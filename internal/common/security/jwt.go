package security

import (
	"codetective/internal/platform/config"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

func GenerateToken(playerID, username, role string) (string, error) {
	claims := jwt.MapClaims{
		"player_id": playerID,
		"username":  username,
		"role":      role,
		"exp":       time.Now().Add(config.AppConfig.JWTExp).Unix(),
		"iat":       time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// Helper functions to extract claims, can be used in middleware or services
func GetPlayerIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["player_id"].(string)
	if !ok {
		return "", errors.New("player_id claim is missing or not a string")
	}
	return id, nil
}

func GetUsernameFromClaims(claims jwt.MapClaims) (string, error) {
	name, ok := claims["username"].(string)
	if !ok {
		return "", errors.New("username claim is missing or not a string")
	}
	return name, nil
}

func GetRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
