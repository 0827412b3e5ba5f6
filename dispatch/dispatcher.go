// Package dispatch implements the ordered-fallback completion dispatcher.
//
// A dispatcher is handed a fixed preference-ordered provider chain and a
// transcript snapshot. It tries each chain entry in turn until one returns a
// schema-valid completion or the chain is exhausted. This is a degrading-
// quality fallback, not a load balancer: the first success always wins, and
// no success-rate memory is kept between calls — every Dispatch restarts at
// index 0.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tutor.chat/providers"
)

// ErrExhausted is returned when every provider in the chain failed. Individual
// provider failures are absorbed and never surfaced on their own.
var ErrExhausted = errors.New("all providers failed")

const (
	// DefaultAttemptTimeout bounds a single provider attempt so a hanging
	// upstream cannot stall the whole chain.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultRateLimitDelay is the pause inserted after a 429 before the
	// next attempt. Subsequent chain entries may share the limiter behind
	// a gateway, so hammering them immediately tends to burn attempts.
	DefaultRateLimitDelay = 2 * time.Second
)

// Dispatcher walks a provider chain sequentially until one attempt succeeds.
type Dispatcher struct {
	provider       providers.CompletionProvider
	attemptTimeout time.Duration
	rateLimitDelay time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.attemptTimeout = d }
}

// WithRateLimitDelay overrides the pause taken after a rate-limited attempt.
func WithRateLimitDelay(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.rateLimitDelay = d }
}

// New creates a Dispatcher that issues attempts through the given provider.
func New(provider providers.CompletionProvider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider:       provider,
		attemptTimeout: DefaultAttemptTimeout,
		rateLimitDelay: DefaultRateLimitDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result is a successful dispatch: the completion text and the chain entry
// that produced it.
type Result struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Dispatch tries each chain entry in order against the transcript and returns
// the first schema-valid completion. The transcript is treated as an immutable
// snapshot; appending the user turn and the assistant reply is the caller's
// job. One full pass over the chain, then ErrExhausted.
func (d *Dispatcher) Dispatch(ctx context.Context, chain []providers.Config, transcript []providers.Message) (*Result, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: empty provider chain", ErrExhausted)
	}

	var lastErr error
	for i, cfg := range chain {
		completion, err := d.attempt(ctx, cfg, transcript)
		if err == nil {
			return &Result{
				Content:      completion.Content,
				Model:        cfg.Model,
				InputTokens:  completion.InputTokens,
				OutputTokens: completion.OutputTokens,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Every provider error is a soft failure: log and move on.
		log.Printf("[Dispatch] Provider %d/%d (%s) failed: %v", i+1, len(chain), cfg.Model, err)
		lastErr = err

		if errors.Is(err, providers.ErrRateLimited) && i < len(chain)-1 {
			if err := d.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: last error: %v", ErrExhausted, lastErr)
}

// attempt runs a single bounded provider call.
func (d *Dispatcher) attempt(ctx context.Context, cfg providers.Config, transcript []providers.Message) (*providers.Completion, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = d.attemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return d.provider.Complete(attemptCtx, cfg, transcript)
}

// pause sleeps for the rate-limit delay, aborting early on cancellation.
func (d *Dispatcher) pause(ctx context.Context) error {
	timer := time.NewTimer(d.rateLimitDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
