// Package speech is the optional text-to-speech client. Synthesis failures
// must never block chat: callers treat any error here as "no audio" and move
// on.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Client calls a speech-synthesis endpoint that accepts {text, voice} and
// returns audio bytes. Transient failures are retried with exponential
// backoff; 4xx responses are permanent.
type Client struct {
	baseURL string
	apiKey  string
	voice   string
	hc      *http.Client

	maxElapsed time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithVoice overrides the default synthesis voice.
func WithVoice(voice string) Option {
	return func(c *Client) { c.voice = voice }
}

// WithMaxElapsed bounds total retry time (default 10s — speech is a nicety,
// not worth a long stall).
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// New creates a speech client for the given endpoint.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		voice:      "alloy",
		hc:         &http.Client{Timeout: 15 * time.Second},
		maxElapsed: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize converts text to audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("speech synthesis not configured")
	}

	body, err := json.Marshal(map[string]string{
		"input": text,
		"voice": c.voice,
	})
	if err != nil {
		return nil, err
	}

	var audio []byte
	op := func() error {
		// Recreate the request each attempt to avoid reusing a consumed body.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("speech status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("speech status %d", resp.StatusCode)
		}

		audio, err = io.ReadAll(resp.Body)
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return audio, nil
}
