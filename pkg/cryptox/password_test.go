package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	pepperPath := filepath.Join(os.TempDir(), "cardfile-test-pepper")
	SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 255)},
		{"unicode password", "пароль密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"),
				"hash should be in PHC format")

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6, "PHC hash should have 6 parts")
			require.NotEmpty(t, parts[4], "salt should not be empty")
			require.NotEmpty(t, parts[5], "hash should not be empty")
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	password := "samepassword"

	hash1, err := HashPassword(password)
	require.NoError(t, err)
	hash2, err := HashPassword(password)
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	t.Run("accepts correct password", func(t *testing.T) {
		require.NoError(t, VerifyPassword("correct-horse", hash))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		err := VerifyPassword("battery-staple", hash)
		require.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("rejects malformed hash with the same error", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"not-a-hash",
			"$argon2id$v=19$m=19456,t=2,p=1$salt", // missing hash part
			"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA", // undecodable salt
		} {
			err := VerifyPassword("whatever", bad)
			require.ErrorIs(t, err, ErrPasswordMismatch, "hash: %q", bad)
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	fp1 := FingerprintToken("some-token")
	fp2 := FingerprintToken("some-token")
	fp3 := FingerprintToken("other-token")

	require.Equal(t, fp1, fp2, "fingerprints are deterministic")
	require.NotEqual(t, fp1, fp3)
	require.Len(t, fp1, 43, "base64url SHA-256 without padding")
}

func TestDummyHash(t *testing.T) {
	hash := DummyHash()
	require.ErrorIs(t, VerifyPassword("anything", hash), ErrPasswordMismatch)

	// Computed once, so repeated login attempts cost a single verify.
	require.Equal(t, hash, DummyHash())
}
