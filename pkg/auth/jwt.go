package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const operatorRole = "operator"

// OperatorClaims represents the claims in an operator JWT
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateOperatorToken signs a short lived operator token for subject.
func GenerateOperatorToken(keys Keys, subject string) (string, time.Time, error) {
	if keys.JWTSecret == "" {
		return "", time.Time{}, ErrNoJWTSecret
	}

	now := time.Now()
	expires := now.Add(keys.ttl())
	claims := OperatorClaims{
		Role: operatorRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(keys.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateOperatorToken validates an operator JWT and returns the claims
func ValidateOperatorToken(keys Keys, tokenString string) (*OperatorClaims, error) {
	if keys.JWTSecret == "" {
		return nil, ErrNoJWTSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(keys.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid || claims.Role != operatorRole {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
