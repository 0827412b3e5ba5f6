package providers

import (
	"context"
	"errors"
	"time"
)

// CompletionProvider is the abstract completion backend consumed by the
// dispatcher. A provider receives the full transcript and returns a single
// assistant completion. Implementations must classify failures with the
// sentinel errors below so the dispatcher can decide how to proceed.
type CompletionProvider interface {
	// Complete issues one completion request for the given model over the
	// full transcript.
	Complete(ctx context.Context, cfg Config, transcript []Message) (*Completion, error)
}

// Outcome classification sentinels. Every error returned by a provider is a
// soft failure from the dispatcher's point of view; the distinction only
// affects pacing (rate limits trigger a delay before the next attempt).
var (
	// ErrRateLimited marks an HTTP 429 from the upstream API.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrRejected marks any other non-2xx response (quota, payment,
	// auth, server errors).
	ErrRejected = errors.New("provider rejected request")

	// ErrMalformed marks a 2xx response whose body does not contain a
	// usable completion.
	ErrMalformed = errors.New("malformed provider response")
)

// Config identifies one entry in the fallback chain: an opaque model name
// plus the endpoint it is served from. Chains are ordered most-preferred
// first and consulted top to bottom.
type Config struct {
	Model   string        `json:"model" yaml:"model"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	APIKey  string        `json:"-" yaml:"api_key"` // never serialize
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Message is a single role-tagged transcript entry. ImageURL, when set,
// upgrades the message to a multi-part (text + image) payload on providers
// that accept the content-array form.
type Message struct {
	Role     string `json:"role"` // system, user, or assistant
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// Completion is the single explicit response schema every adapter translates
// into. Call sites never probe alternative field names.
type Completion struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}
