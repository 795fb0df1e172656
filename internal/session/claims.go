package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the API token payload the console reads. The console never
// verifies signatures; it only needs to know when to ask for a fresh login.
type Claims struct {
	UserID any    `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a JWT payload without verifying it. Opaque tokens return an error.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("token is not a JWT: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token carries an expiry that has passed
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ExpiresIn returns the remaining validity, or zero when the token has no expiry
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}
