package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the subset of ID-token claims the session engine reads
// to label a cached authentication state. The claims are NOT verified; the
// identity provider client is trusted to have received the token over TLS.
type IdentityClaims struct {
	jwt.RegisteredClaims

	Email             string `json:"email,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	SID               string `json:"sid,omitempty"`
}

// ParseUnverified decodes the claims of a structurally valid token without
// checking its signature.
func ParseUnverified(token string) (IdentityClaims, error) {
	if err := ValidateFormat(token); err != nil {
		return IdentityClaims{}, err
	}

	var claims IdentityClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return IdentityClaims{}, fmt.Errorf("jwtx: decode claims: %w", err)
	}

	return claims, nil
}

// Subject returns the "sub" claim of token, or "" if it cannot be read.
func Subject(token string) string {
	claims, err := ParseUnverified(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// ExpiresAt returns the "exp" claim of token, if present.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := ParseUnverified(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.UTC(), true
}
