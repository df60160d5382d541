package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cardfile/cardfile/internal/domain"
)

type contactsRepo struct {
	db dbtx
}

const contactColumns = `id, user_id, first_name, last_name, birthday, notes, created_at, updated_at`

func scanContact(scan func(dest ...any) error) (domain.Contact, error) {
	var c domain.Contact
	var birthday sql.NullTime
	err := scan(
		&c.ID,
		&c.UserID,
		&c.FirstName,
		&c.LastName,
		&birthday,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Contact{}, err
	}
	if birthday.Valid {
		c.Birthday = birthday.Time
	}
	return c, nil
}

func mapTimeNull(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (r *contactsRepo) ListContacts(ctx context.Context, userID string, offset, limit int) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = ? ORDER BY created_at, id LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range contacts {
		if err := r.loadChildren(ctx, &contacts[i]); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

func (r *contactsRepo) GetContact(ctx context.Context, userID, contactID string) (domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND user_id = ?`,
		contactID, userID)
	c, err := scanContact(row.Scan)
	if err != nil {
		return domain.Contact{}, mapNotFound(err)
	}
	if err := r.loadChildren(ctx, &c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (r *contactsRepo) loadChildren(ctx context.Context, c *domain.Contact) error {
	phones, err := r.db.QueryContext(ctx,
		`SELECT id, number FROM contact_phones WHERE contact_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return err
	}
	defer phones.Close()
	for phones.Next() {
		var p domain.PhoneNumber
		if err := phones.Scan(&p.ID, &p.Number); err != nil {
			return err
		}
		c.Phones = append(c.Phones, p)
	}
	if err := phones.Err(); err != nil {
		return err
	}

	emails, err := r.db.QueryContext(ctx,
		`SELECT id, address FROM contact_emails WHERE contact_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return err
	}
	defer emails.Close()
	for emails.Next() {
		var e domain.EmailAddress
		if err := emails.Scan(&e.ID, &e.Address); err != nil {
			return err
		}
		c.Emails = append(c.Emails, e)
	}
	return emails.Err()
}

func (r *contactsRepo) CreateContact(ctx context.Context, c domain.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, first_name, last_name, birthday, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.FirstName, c.LastName, mapTimeNull(c.Birthday), c.Notes)
	if err != nil {
		return mapConstraint(err)
	}
	return r.insertChildren(ctx, c)
}

func (r *contactsRepo) UpdateContact(ctx context.Context, c domain.Contact) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET first_name = ?, last_name = ?, birthday = ?, notes = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		c.FirstName, c.LastName, mapTimeNull(c.Birthday), c.Notes, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if err := requireRowChanged(res); err != nil {
		return err
	}

	// Replace the dependent sets wholesale. The handlers accept the full
	// phone/email lists on update, matching create.
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM contact_phones WHERE contact_id = ?`, c.ID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM contact_emails WHERE contact_id = ?`, c.ID); err != nil {
		return err
	}
	return r.insertChildren(ctx, c)
}

func (r *contactsRepo) insertChildren(ctx context.Context, c domain.Contact) error {
	for _, p := range c.Phones {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO contact_phones (id, contact_id, number) VALUES (?, ?, ?)`,
			p.ID, c.ID, p.Number); err != nil {
			return err
		}
	}
	for _, e := range c.Emails {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO contact_emails (id, contact_id, address) VALUES (?, ?, ?)`,
			e.ID, c.ID, e.Address); err != nil {
			return err
		}
	}
	return nil
}

func (r *contactsRepo) DeleteContact(ctx context.Context, userID, contactID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND user_id = ?`, contactID, userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}
