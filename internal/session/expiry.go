package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry returns the exp claim of a JWT access credential. The
// signature is not checked: the client cannot verify it and only uses the
// value for status output.
func AccessExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
