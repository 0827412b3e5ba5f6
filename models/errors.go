package models

import "errors"

// Shared error taxonomy. Handlers map these onto HTTP status codes; nothing
// below ever carries provider-level detail to the user.
var (
	// ErrValidation marks user-correctable input problems. The wrapped
	// message is surfaced verbatim.
	ErrValidation = errors.New("validation error")

	// ErrNotFound covers both a missing resource and a resource not owned
	// by the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAccount is returned when registering an email that
	// already exists.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password, to avoid account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized marks a missing, malformed, expired, or orphaned
	// bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)
