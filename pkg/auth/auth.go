// Package auth guards the operator routes of the HTTP surface.
package auth

import (
	"errors"
	"time"
)

var ErrNoJWTSecret = errors.New("JWT_SECRET_KEY not configured")

const defaultTokenTTL = 24 * time.Hour

// Keys holds the operator secrets. An empty AdminSecret leaves operator
// routes open.
type Keys struct {
	AdminSecret string
	JWTSecret   string
	TokenTTL    time.Duration
}

func (k Keys) Enabled() bool {
	return k.AdminSecret != ""
}

func (k Keys) ttl() time.Duration {
	if k.TokenTTL <= 0 {
		return defaultTokenTTL
	}
	return k.TokenTTL
}
