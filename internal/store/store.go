package store

import (
	"context"
	"errors"

	"github.com/cardfile/cardfile/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// production, memory for tests) implement this. Sub-repositories keep the
// surface tidy; all mutable auth state (confirmed flag, refresh-token
// fingerprint) lives behind this interface, never in the services.
type Store interface {
	Users() Users
	Contacts() Contacts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn
	// returns an error and committing otherwise. This is the preferred
	// way to run multi-step operations (contact writes with their
	// dependent phone and email rows).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing database is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByEmail looks an account up by its normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByID returns an account by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// CreateUser inserts a new account (id is provided by the app via
	// ULID). A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// SetRefreshToken overwrites the stored refresh-token fingerprint.
	// An empty fingerprint clears it, revoking any outstanding refresh
	// token immediately.
	SetRefreshToken(ctx context.Context, userID, fingerprint string) error

	// SwapRefreshToken replaces the stored fingerprint only when it still
	// equals oldFingerprint (compare-and-swap). Concurrent rotations of
	// the same token therefore have exactly one winner; losers get
	// ErrNotFound.
	SwapRefreshToken(ctx context.Context, userID, oldFingerprint, newFingerprint string) error

	// MarkConfirmed flips confirmed to true. This never reverts.
	MarkConfirmed(ctx context.Context, userID string) error

	// UpdateAvatarURL sets the avatar display attribute.
	UpdateAvatarURL(ctx context.Context, userID, url string) error
}

type Contacts interface {
	// ListContacts returns a page of the user's contacts, oldest first.
	ListContacts(ctx context.Context, userID string, offset, limit int) ([]domain.Contact, error)

	// GetContact returns one contact, scoped to its owner.
	GetContact(ctx context.Context, userID, contactID string) (domain.Contact, error)

	// CreateContact inserts a contact with its phone numbers and emails.
	CreateContact(ctx context.Context, c domain.Contact) error

	// UpdateContact replaces the contact's fields and its phone/email sets.
	UpdateContact(ctx context.Context, c domain.Contact) error

	// DeleteContact removes a contact and its dependent rows.
	DeleteContact(ctx context.Context, userID, contactID string) error
}
