// Package session owns conversation transcripts for server-held tutoring
// sessions. A transcript lives for the duration of one student page session;
// it is never written to durable storage.
package session

import (
	"context"
	"errors"
	"time"

	"tutor.chat/providers"
)

// Store errors.
var (
	ErrNotFound        = errors.New("session not found")
	ErrVersionConflict = errors.New("session version conflict")
	ErrInvalidConfig   = errors.New("invalid session store configuration")
)

// Session is one live conversation. Version increments on every successful
// Update and provides optimistic locking: a send racing an in-flight dispatch
// fails with ErrVersionConflict instead of corrupting the transcript, since
// concurrent appends are not supported.
type Session struct {
	ID         string              `json:"id"`
	LinkID     string              `json:"link_id"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Version    int64               `json:"version"`
	Transcript []providers.Message `json:"transcript"`
}

// SeedSystem places the single system message at the head of the transcript.
// It only applies to an empty transcript; a seeded session keeps its system
// message for its whole lifetime.
func (s *Session) SeedSystem(text string) {
	if len(s.Transcript) > 0 {
		return
	}
	s.Transcript = append(s.Transcript, providers.Message{Role: "system", Content: text})
}

// AppendUser adds the student's next turn.
func (s *Session) AppendUser(text string) {
	s.Transcript = append(s.Transcript, providers.Message{Role: "user", Content: text})
}

// AppendUserImage adds a multi-part student turn (text + image).
func (s *Session) AppendUserImage(text, imageURL string) {
	s.Transcript = append(s.Transcript, providers.Message{Role: "user", Content: text, ImageURL: imageURL})
}

// AppendAssistant adds a completed assistant turn.
func (s *Session) AppendAssistant(text string) {
	s.Transcript = append(s.Transcript, providers.Message{Role: "assistant", Content: text})
}

// Snapshot returns a copy of the transcript. The dispatcher operates on this
// immutable view; later appends never reach an in-flight dispatch.
func (s *Session) Snapshot() []providers.Message {
	out := make([]providers.Message, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}

// Store is the interface for session persistence across requests.
type Store interface {
	// Create stores a new session with Version set to 1.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Update persists a modified session with optimistic locking: the
	// caller's Version must match the stored one, and is incremented on
	// success. Returns ErrVersionConflict on a mismatch.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by ID. Deleting a missing session is not
	// an error.
	Delete(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}
