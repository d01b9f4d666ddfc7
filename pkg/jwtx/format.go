package jwtx

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformed reports a token that is not three dot-separated base64url
// segments.
var ErrMalformed = errors.New("jwtx: malformed token")

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateFormat performs a structural sanity check on a compact JWT. It does
// not decode the segments or verify any signature.
func ValidateFormat(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrMalformed
	}

	for _, part := range parts {
		if !segmentPattern.MatchString(part) {
			return ErrMalformed
		}
	}

	return nil
}

// IsWellFormed reports whether token passes ValidateFormat.
func IsWellFormed(token string) bool {
	return ValidateFormat(token) == nil
}
