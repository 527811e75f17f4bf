package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenCookie = "access_token"
	bearerPrefix      = "Bearer "
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrMissingUser  = errors.New("access token has no user")
)

// Identity is what the order service needs from a user-service token.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

func ExtractAccessToken(r *http.Request) string {
	// Cookie (preferred)
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	// Authorization header (fallback)
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	}

	return ""
}

// ParseAccessToken verifies an HS256 token and reads the identity claims.
// Expired tokens are rejected.
func ParseAccessToken(tokenStr string, secret []byte) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	// JSON numbers decode to float64
	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return nil, ErrMissingUser
	}

	id := &Identity{UserID: int64(uid)}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	return id, nil
}
