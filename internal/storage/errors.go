package storage

import "errors"

var (
	// ErrNotFound reports that the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCodeTaken reports a course create with a code that is already
	// registered. Clients are told to pick another code.
	ErrCodeTaken = errors.New("course code already registered, use another code")

	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrPasswordLoginUnsupported = errors.New("account does not support password login")
)
