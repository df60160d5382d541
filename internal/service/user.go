package service

import (
	"context"
	"errors"
	"io"

	"github.com/cardfile/cardfile/internal/avatar"
	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/store"
)

// UserService exposes profile reads and avatar updates.
type UserService struct {
	Store   store.Store
	Avatars avatar.Store
}

// GetUserByID fetches an account by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateAvatar stores the uploaded image and points the account's avatar URL
// at it, returning the updated account.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, img io.Reader) (domain.User, error) {
	url, err := s.Avatars.Put(ctx, userID, img)
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().UpdateAvatarURL(ctx, userID, url); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}

	return s.GetUserByID(ctx, userID)
}
