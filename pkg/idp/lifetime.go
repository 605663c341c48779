package idp

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Lifetime sources reported by Lifetime.
const (
	LifetimeFromExpiresIn = "expires_in"
	LifetimeFromExpiry    = "expiry"
	LifetimeFromJWT       = "jwt_exp"
	LifetimeFromDefault   = "default"
)

// Lifetime returns how long tok's access token is valid and where that
// value came from. expires_in (seconds) wins; then the token's computed
// expiry; then the exp claim of a JWT access token; then fallback.
func Lifetime(tok *oauth2.Token, fallback time.Duration) (time.Duration, string) {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second, LifetimeFromExpiresIn
	}
	if !tok.Expiry.IsZero() {
		if d := time.Until(tok.Expiry).Round(time.Second); d > 0 {
			return d, LifetimeFromExpiry
		}
	}
	if d, ok := jwtLifetime(tok.AccessToken); ok {
		return d, LifetimeFromJWT
	}
	return fallback, LifetimeFromDefault
}

// jwtLifetime reads exp (and iat when present) from an access token without
// verifying it. The token is only inspected for its own expiry; the archive
// service validates it.
func jwtLifetime(accessToken string) (time.Duration, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return 0, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}

	issued := time.Now()
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		issued = iat.Time
	}

	d := exp.Sub(issued)
	if d <= 0 {
		return 0, false
	}
	return d, true
}
