package stream

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// credentialExpired reports whether the token is a JWT that has already
// expired. Opaque (non-JWT) tokens and JWTs without an exp claim report
// false: the server remains authoritative for those.
//
// The signature is deliberately not verified here. This is a client-side
// preflight that turns a guaranteed auth rejection into an immediate fatal
// error instead of burning a connect cycle.
func credentialExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(time.Now())
}
