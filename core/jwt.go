package core

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set the SDK surfaces from server-issued tokens.
// Tokens are minted and validated by the backend; the client only inspects
// them and never verifies signatures.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// Expired reports whether the token's exp claim has passed. Tokens without an
// exp claim never expire from the client's point of view.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}

// InspectToken decodes a JWT's claims without verifying its signature.
func InspectToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
