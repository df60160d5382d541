package service

import "errors"

var (
	ErrDuplicateAccount   = errors.New("account_already_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailNotConfirmed  = errors.New("email_not_confirmed")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrContactNotFound    = errors.New("contact_not_found")
)
