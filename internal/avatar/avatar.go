// Package avatar stores user profile images and derives default avatar URLs.
package avatar

import (
	"context"
	"crypto/md5" // #nosec G501 - gravatar addresses images by md5, not a security use
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// GravatarURL returns the gravatar image URL for an email address. New
// accounts get this as their avatar until they upload their own.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) // #nosec G401
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon", hex.EncodeToString(sum[:]))
}

// Store persists uploaded avatar images and returns the URL they are served
// under.
type Store interface {
	Put(ctx context.Context, userID string, r io.Reader) (string, error)
}

// DiskStore writes avatars to a directory on local disk. Files are named by
// user id so a re-upload replaces the previous image, and the directory is
// served by the HTTP layer under baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the backing directory if needed. baseURL is the URL
// prefix the directory is served under, e.g. "/avatars".
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("avatar: create dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir reports the backing directory, for wiring the static file handler.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(ctx context.Context, userID string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := userID + ".img"
	path := filepath.Join(s.dir, name)

	// Write to a temp file first so a failed upload never clobbers the
	// existing avatar.
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("avatar: create temp: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("avatar: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("avatar: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("avatar: rename: %w", err)
	}

	return s.baseURL + "/" + name, nil
}
