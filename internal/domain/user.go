package domain

import "time"

// User is a registered account. Email is the login identifier, stored
// lowercased; at most one User exists per email.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2 encoded
	AvatarURL    string
	Confirmed    bool

	// RefreshTokenHash is the SHA-256 fingerprint of the one live refresh
	// token, or empty when no session is active. Overwriting it revokes
	// whatever token was stored before.
	RefreshTokenHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}
