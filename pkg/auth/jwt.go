// Package auth validates viewer identity tokens and service-to-service
// tokens. Viewer tokens are minted by the account service; this service only
// verifies them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidJWT = errors.New("invalid JWT token")
	ErrExpiredJWT = errors.New("JWT token expired")
)

// ViewerClaims represents the identity carried by a viewer token.
type ViewerClaims struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Profile  string `json:"profile,omitempty"`
	jwt.RegisteredClaims
}

// GenerateViewerJWT creates a signed viewer token. Used by tests and local
// tooling; production tokens come from the account service.
func GenerateViewerJWT(userID, nickname, profile string, secret []byte, ttl time.Duration) (string, error) {
	claims := &ViewerClaims{
		UserID:   userID,
		Nickname: nickname,
		Profile:  profile,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateViewerJWT validates a viewer token and returns its claims
func ValidateViewerJWT(tokenString string, secret []byte) (*ViewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify the signing method to prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredJWT
		}
		return nil, ErrInvalidJWT
	}

	if claims, ok := token.Claims.(*ViewerClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidJWT
}
