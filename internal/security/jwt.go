// Package security inspects the booking service bearer token.
package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the Authorization value is not a decodable JWT.
var ErrInvalidToken = errors.New("invalid token")

// BearerClaims are the claims read from the booking service token.
// The signature cannot be checked locally, so claims are informational only.
type BearerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseBearer decodes an Authorization header value without verifying its signature.
func ParseBearer(authorization string) (*BearerClaims, error) {
	raw := strings.TrimSpace(authorization)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &BearerClaims{}
	if _, _, errParse := jwt.NewParser().ParseUnverified(raw, claims); errParse != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenExpiry returns the expiry of the bearer token, when it carries one.
func TokenExpiry(authorization string) (time.Time, bool) {
	claims, errParse := ParseBearer(authorization)
	if errParse != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the bearer token carries an expiry before now.
// Tokens without a readable expiry are never considered expired.
func Expired(authorization string, now time.Time) bool {
	expiry, ok := TokenExpiry(authorization)
	return ok && !expiry.After(now)
}
