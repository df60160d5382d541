package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret)
	require.NoError(t, err)
	return c
}

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	_, err := NewCodec([]byte("too-short"))
	require.ErrorIs(t, err, ErrShortSecret)
}

func TestCodec_SignVerifyRoundtrip(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.Sign(newClaims("a@example.com", ScopeAccess, "cardfile", time.Minute, time.Now()))
	require.NoError(t, err)
	require.Len(t, strings.Split(signed, "."), 3, "compact three-part form")

	claims, err := c.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", claims.Subject)
	require.Equal(t, ScopeAccess, claims.Scope)
	require.Equal(t, "cardfile", claims.Issuer)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
}

func TestCodec_RejectsWrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	signed, err := c.Sign(newClaims("a@example.com", ScopeAccess, "cardfile", time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = other.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestCodec_RejectsTampering(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.Sign(newClaims("a@example.com", ScopeAccess, "cardfile", time.Minute, time.Now()))
	require.NoError(t, err)

	// Flip one character of the payload segment.
	parts := strings.Split(signed, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)

	_, err = c.Verify(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestCodec_RejectsGarbage(t *testing.T) {
	c := newTestCodec(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Verify(tok)
		require.ErrorIs(t, err, ErrMalformed, "token: %q", tok)
	}
}

func TestCodec_RejectsExpired(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.Sign(newClaims("a@example.com", ScopeAccess, "cardfile", time.Minute, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.ErrorIs(t, err, ErrExpired)
}

func TestCodec_VerifyScope(t *testing.T) {
	c := newTestCodec(t)

	access, err := c.Sign(newClaims("a@example.com", ScopeAccess, "cardfile", time.Minute, time.Now()))
	require.NoError(t, err)

	t.Run("accepts matching scope", func(t *testing.T) {
		claims, err := c.VerifyScope(access, ScopeAccess)
		require.NoError(t, err)
		require.Equal(t, ScopeAccess, claims.Scope)
	})

	t.Run("rejects other scope", func(t *testing.T) {
		_, err := c.VerifyScope(access, ScopeRefresh)
		require.ErrorIs(t, err, ErrScope)
	})

	t.Run("rejects unscoped token where a scope is expected", func(t *testing.T) {
		confirm, err := c.Sign(newClaims("a@example.com", "", "cardfile", time.Minute, time.Now()))
		require.NoError(t, err)
		_, err = c.VerifyScope(confirm, ScopeAccess)
		require.ErrorIs(t, err, ErrScope)
	})
}

func TestIssuer_TokenKinds(t *testing.T) {
	c := newTestCodec(t)
	iss := NewIssuer(c, "cardfile", 0, 0, 0)

	access, err := iss.Access("a@example.com")
	require.NoError(t, err)
	refresh, err := iss.Refresh("a@example.com")
	require.NoError(t, err)
	confirm, err := iss.EmailConfirmation("a@example.com")
	require.NoError(t, err)

	require.NotEqual(t, access, refresh)

	ac, err := c.Verify(access)
	require.NoError(t, err)
	require.Equal(t, ScopeAccess, ac.Scope)
	require.WithinDuration(t,
		time.Now().Add(DefaultAccessTokenTTL), ac.ExpiresAt.Time, 5*time.Second)

	rc, err := c.Verify(refresh)
	require.NoError(t, err)
	require.Equal(t, ScopeRefresh, rc.Scope)
	require.WithinDuration(t,
		time.Now().Add(DefaultRefreshTokenTTL), rc.ExpiresAt.Time, 5*time.Second)

	cc, err := c.Verify(confirm)
	require.NoError(t, err)
	require.Empty(t, cc.Scope, "confirmation tokens are unscoped")
	require.Equal(t, "a@example.com", cc.Subject)
}
