package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the minimum signing secret size. HS256 keys shorter than
// the hash output weaken the HMAC.
const MinSecretLen = 32

var (
	ErrShortSecret = errors.New("jwtx: signing secret must be at least 32 bytes")

	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrScope      = errors.New("jwtx: scope mismatch")
)

// Codec signs and verifies HS256 tokens with a shared secret. The secret is
// supplied by the environment; there is no baked-in default.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrShortSecret
	}
	return &Codec{secret: secret}, nil
}

// Sign serializes the claims into a compact signed string. The signature
// covers the full claim set, so any tampering is detectable on Verify.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Failures map
// onto the package sentinels so callers can collapse them into a single
// "invalid token" response without leaking which check failed.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}
	return claims, nil
}

// VerifyScope is Verify plus a scope check. Use it for access and refresh
// tokens; email-confirmation tokens go through plain Verify.
func (c *Codec) VerifyScope(tokenString, scope string) (Claims, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.Scope != scope {
		return Claims{}, ErrScope
	}
	return claims, nil
}

// Issuer mints the three token kinds with fixed lifetimes and scope tags.
type Issuer struct {
	codec *Codec

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	confirmTTL time.Duration
}

// NewIssuer builds an Issuer. Zero TTLs fall back to the package defaults.
func NewIssuer(codec *Codec, issuer string, accessTTL, refreshTTL, confirmTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	if confirmTTL <= 0 {
		confirmTTL = DefaultConfirmTokenTTL
	}
	return &Issuer{
		codec:      codec,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		confirmTTL: confirmTTL,
	}
}

// Access issues a short-lived bearer token with scope=access_token.
func (i *Issuer) Access(email string) (string, error) {
	return i.codec.Sign(newClaims(email, ScopeAccess, i.issuer, i.accessTTL, time.Now()))
}

// Refresh issues a token with scope=refresh_token. Callers persist its
// fingerprint; only the currently stored one is accepted on exchange.
func (i *Issuer) Refresh(email string) (string, error) {
	return i.codec.Sign(newClaims(email, ScopeRefresh, i.issuer, i.refreshTTL, time.Now()))
}

// EmailConfirmation issues the token embedded in confirmation links. It
// deliberately carries no scope claim.
func (i *Issuer) EmailConfirmation(email string) (string, error) {
	return i.codec.Sign(newClaims(email, "", i.issuer, i.confirmTTL, time.Now()))
}
