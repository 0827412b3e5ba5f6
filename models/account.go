package models

import (
	"time"
)

// Account represents a registered teacher. Accounts are created at
// registration, read at login and token verification, and never mutated
// afterwards.
type Account struct {
	// Identification
	ID    string `json:"id"`
	Email string `json:"email"` // unique across all accounts

	// Credential. The bcrypt hash is never serialized in API responses.
	PasswordHash string `json:"-"`

	// Profile
	Name        string `json:"name"`
	Institution string `json:"institution"`

	// Metadata
	CreatedAt time.Time `json:"created_at"`
}
