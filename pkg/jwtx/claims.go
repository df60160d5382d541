// Package jwtx is the token codec: one HS256 signer/verifier underlies the
// access, refresh, and email-confirmation tokens. Only the scope claim and
// the lifetime differ between the three kinds, which keeps the signing
// surface small enough to audit.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short-lived access tokens, week-long refresh and
// confirmation tokens. Overridable per-service via Issuer.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultConfirmTokenTTL = 7 * 24 * time.Hour
)

// Scope values carried in the "scope" claim. Email-confirmation tokens
// carry no scope at all and are verified on a path that ignores it.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

// Claims are the signed claims shared by every token kind. Subject is the
// account email.
type Claims struct {
	jwt.RegisteredClaims

	// Scope restricts the token's intended use context.
	Scope string `json:"scope,omitempty"`
}

func newClaims(subject, scope, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	}
}
