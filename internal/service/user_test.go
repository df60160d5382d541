package service

import (
	"context"
	"strings"
	"testing"

	"github.com/cardfile/cardfile/internal/avatar"
	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/store/drivers/sqlite"
	"github.com/cardfile/cardfile/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, domain.User) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	avatars, err := avatar.NewDiskStore(t.TempDir(), "/avatars")
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		AvatarURL:    avatar.GravatarURL("alice@example.com"),
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	return &UserService{Store: st, Avatars: avatars}, user
}

func TestGetUserByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, user := newUserService(t)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)

	_, err = svc.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, user := newUserService(t)

	updated, err := svc.UpdateAvatar(ctx, user.ID, strings.NewReader("image-bytes"))
	require.NoError(t, err)
	require.Equal(t, "/avatars/"+user.ID+".img", updated.AvatarURL)

	_, err = svc.UpdateAvatar(ctx, "missing", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrAccountNotFound)
}
