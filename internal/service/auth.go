package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cardfile/cardfile/internal/avatar"
	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/mail"
	"github.com/cardfile/cardfile/internal/store"
	"github.com/cardfile/cardfile/pkg/cryptox"
	"github.com/cardfile/cardfile/pkg/idx"
	"github.com/cardfile/cardfile/pkg/jwtx"
	"github.com/cardfile/cardfile/pkg/slogx"
)

// AuthService owns account signup and the token lifecycle: login, refresh
// rotation, and email confirmation.
type AuthService struct {
	Store  store.Store
	Codec  *jwtx.Codec
	Tokens *jwtx.Issuer
	Mail   *mail.Dispatcher

	// BaseURL is the public origin used in confirmation links.
	BaseURL string
}

// normalizeEmail folds an address to its canonical stored form. All lookups
// and claims use this form, so case differences never split an account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new account. The account starts unconfirmed; a
// confirmation email is queued in the background and its failure never fails
// the signup.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    avatar.GravatarURL(email),
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateAccount
		}
		return domain.User{}, err
	}

	l.Info("account created", slog.String("user_id", user.ID))
	s.queueConfirmation(ctx, user)

	return user, nil
}

// Login exchanges credentials for a token pair. Unknown emails cost a dummy
// password verification so response timing does not reveal whether the
// account exists. Unconfirmed accounts cannot log in.
//
// Each login overwrites the stored refresh-token fingerprint, so at most one
// refresh token is live per account.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash())
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login rejected", slog.String("user_id", user.ID))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if !user.Confirmed {
		return domain.TokenPair{}, ErrEmailNotConfirmed
	}

	pair, refreshFP, err := s.mintPair(user.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().SetRefreshToken(ctx, user.ID, refreshFP); err != nil {
		return domain.TokenPair{}, err
	}

	l.Info("login succeeded", slog.String("user_id", user.ID))
	return pair, nil
}

// RefreshTokens rotates a refresh token for a fresh pair. The presented token
// must match the single stored fingerprint; a mismatch on an otherwise valid
// token means it was already rotated or revoked, and the stored fingerprint
// is cleared so the session cannot limp along.
//
// Rotation itself is a compare-and-swap, so two concurrent exchanges of the
// same token produce exactly one winner.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.VerifyScope(refreshToken, jwtx.ScopeRefresh)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	presentedFP := cryptox.FingerprintToken(refreshToken)
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != presentedFP {
		// The token is signed and unexpired but no longer current. Clear
		// whatever is stored so a possibly stolen token kills the session
		// rather than coexisting with it.
		if err := s.Store.Users().SetRefreshToken(ctx, user.ID, ""); err != nil && !errors.Is(err, store.ErrNotFound) {
			l.Error("failed to clear refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		l.Info("refresh token reuse detected", slog.String("user_id", user.ID))
		return domain.TokenPair{}, ErrInvalidToken
	}

	pair, newFP, err := s.mintPair(user.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().SwapRefreshToken(ctx, user.ID, presentedFP, newFP); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race against a concurrent refresh.
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	return pair, nil
}

// ConfirmEmail validates a confirmation token and marks the account
// confirmed. Confirming twice is not an error; the second call reports
// alreadyConfirmed so the handler can phrase its response.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	claims, err := s.Codec.Verify(token)
	if err != nil {
		return false, ErrInvalidToken
	}
	// Confirmation tokens carry no scope. Access and refresh tokens must
	// not be usable to confirm an address.
	if claims.Scope != "" {
		return false, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrAccountNotFound
		}
		return false, err
	}

	if user.Confirmed {
		return true, nil
	}

	if err := s.Store.Users().MarkConfirmed(ctx, user.ID); err != nil {
		return false, err
	}

	slogx.FromContext(ctx).Info("email confirmed", slog.String("user_id", user.ID))
	return false, nil
}

// RequestConfirmation re-sends the confirmation email. Unknown addresses are
// a silent no-op so the endpoint is not an account oracle. An already
// confirmed account gets no mail; the caller is told so it can say as much.
func (s *AuthService) RequestConfirmation(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if user.Confirmed {
		return true, nil
	}

	s.queueConfirmation(ctx, user)
	return false, nil
}

// ResolveAccount maps a bearer access token to its account. It backs the
// authentication middleware.
func (s *AuthService) ResolveAccount(ctx context.Context, accessToken string) (domain.User, error) {
	claims, err := s.Codec.VerifyScope(accessToken, jwtx.ScopeAccess)
	if err != nil {
		return domain.User{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}
	return user, nil
}

// mintPair issues an access/refresh pair for the subject and returns the
// refresh token's fingerprint for storage.
func (s *AuthService) mintPair(email string) (domain.TokenPair, string, error) {
	access, err := s.Tokens.Access(email)
	if err != nil {
		return domain.TokenPair{}, "", err
	}
	refresh, err := s.Tokens.Refresh(email)
	if err != nil {
		return domain.TokenPair{}, "", err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, cryptox.FingerprintToken(refresh), nil
}

func (s *AuthService) queueConfirmation(ctx context.Context, user domain.User) {
	token, err := s.Tokens.EmailConfirmation(user.Email)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to issue confirmation token",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	s.Mail.Enqueue(mail.ConfirmationMessage(user.Email, user.Username, s.BaseURL, token))
}
