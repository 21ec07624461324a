// Package auth issues and verifies the signed session tokens that carry
// identity for every authenticated request. The token is the only carrier of
// identity: handlers never trust client-asserted role or patient fields.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"qolintake/api/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claims mirrors the payload the dashboards were built against.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	PatientID string `json:"Patient_ID,omitempty"`
	IsReport  bool   `json:"isReport"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the user, valid for ttl from now.
func IssueToken(secret []byte, user model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     user.Email,
		Role:      user.Role,
		PatientID: user.PatientID,
		IsReport:  user.IsReport,
		Name:      user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies the signature and expiry. Expired tokens and malformed
// or tampered tokens fail with distinct sentinel errors; both map to 401 at
// the HTTP boundary.
func ParseToken(secret []byte, tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
