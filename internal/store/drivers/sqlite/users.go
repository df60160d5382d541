package sqlite

import (
	"context"
	"database/sql"

	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, avatar_url, confirmed, refresh_token_hash, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var refreshHash sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.AvatarURL,
		&u.Confirmed,
		&refreshHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.RefreshTokenHash = mapNullString(refreshHash)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, avatar_url, confirmed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.AvatarURL, u.Confirmed)
	return mapConstraint(err)
}

func (r *usersRepo) SetRefreshToken(ctx context.Context, userID, fingerprint string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		mapStringNull(fingerprint), userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

// SwapRefreshToken only succeeds when the stored fingerprint still equals
// oldFingerprint, so two racing rotations of the same token have exactly one
// winner. The loser sees store.ErrNotFound.
func (r *usersRepo) SwapRefreshToken(ctx context.Context, userID, oldFingerprint, newFingerprint string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND refresh_token_hash = ?`,
		mapStringNull(newFingerprint), userID, oldFingerprint)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *usersRepo) MarkConfirmed(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *usersRepo) UpdateAvatarURL(ctx context.Context, userID, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		url, userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func requireRowChanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
