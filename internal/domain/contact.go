package domain

import "time"

// Contact is one address-book entry, owned by exactly one User. Phone
// numbers and email addresses are dependent rows with no life of their own;
// updates replace the whole set.
type Contact struct {
	ID     string
	UserID string

	FirstName string
	LastName  string
	Birthday  time.Time // date precision; zero when unknown
	Notes     string

	Phones []PhoneNumber
	Emails []EmailAddress

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PhoneNumber struct {
	ID     string
	Number string
}

type EmailAddress struct {
	ID      string
	Address string
}
