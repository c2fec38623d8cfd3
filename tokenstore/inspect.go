package tokenstore

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Expiry extracts the expiration time from a JWT access token without
// verifying its signature. The manager never trusts the claim for
// authorization; it only uses it to schedule proactive refreshes. Returns
// false for opaque tokens or tokens without an exp claim.
func Expiry(rawToken string) (time.Time, bool) {
	if rawToken == "" {
		return time.Time{}, false
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	expiry, err := token.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, false
	}
	return expiry.Time, true
}

// ExpiresWithin reports whether the token's expiry falls inside the given
// leeway from now. Tokens without a readable expiry never report as expiring.
func ExpiresWithin(rawToken string, leeway time.Duration) bool {
	expiry, ok := Expiry(rawToken)
	if !ok {
		return false
	}
	return !expiry.After(NowTimeFunc().Add(leeway))
}
