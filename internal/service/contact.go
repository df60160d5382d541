package service

import (
	"context"
	"errors"

	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/store"
	"github.com/cardfile/cardfile/pkg/idx"
)

const (
	// DefaultContactPageSize bounds list responses when the client asks
	// for nothing in particular.
	DefaultContactPageSize = 50
	MaxContactPageSize     = 200
)

// ContactService owns the contact book. Every operation is scoped to the
// owning account; a contact id belonging to someone else behaves exactly
// like one that does not exist.
type ContactService struct {
	Store store.Store
}

// ListContacts returns a page of the account's contacts, oldest first.
func (s *ContactService) ListContacts(ctx context.Context, userID string, offset, limit int) ([]domain.Contact, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultContactPageSize
	}
	if limit > MaxContactPageSize {
		limit = MaxContactPageSize
	}

	contacts, err := s.Store.Contacts().ListContacts(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// GetContact fetches a single contact with its phone numbers and emails.
func (s *ContactService) GetContact(ctx context.Context, userID, contactID string) (domain.Contact, error) {
	c, err := s.Store.Contacts().GetContact(ctx, userID, contactID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Contact{}, ErrContactNotFound
		}
		return domain.Contact{}, err
	}
	return c, nil
}

// CreateContact stores a new contact with its dependent phone and email
// rows in one transaction.
func (s *ContactService) CreateContact(ctx context.Context, userID string, c domain.Contact) (domain.Contact, error) {
	c.ID = idx.New().String()
	c.UserID = userID
	assignChildIDs(&c)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Contacts().CreateContact(ctx, c)
	})
	if err != nil {
		return domain.Contact{}, err
	}
	return s.GetContact(ctx, userID, c.ID)
}

// UpdateContact replaces a contact's fields and its full phone/email sets.
func (s *ContactService) UpdateContact(ctx context.Context, userID, contactID string, c domain.Contact) (domain.Contact, error) {
	c.ID = contactID
	c.UserID = userID
	assignChildIDs(&c)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Contacts().UpdateContact(ctx, c)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Contact{}, ErrContactNotFound
		}
		return domain.Contact{}, err
	}
	return s.GetContact(ctx, userID, contactID)
}

// DeleteContact removes a contact and everything hanging off it.
func (s *ContactService) DeleteContact(ctx context.Context, userID, contactID string) error {
	if err := s.Store.Contacts().DeleteContact(ctx, userID, contactID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	return nil
}

func assignChildIDs(c *domain.Contact) {
	for i := range c.Phones {
		c.Phones[i].ID = idx.New().String()
	}
	for i := range c.Emails {
		c.Emails[i].ID = idx.New().String()
	}
}
