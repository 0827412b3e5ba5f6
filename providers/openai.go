package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider handles any OpenAI-compatible chat completions endpoint.
// BaseURL is the API root; the /v1/chat/completions path is appended here.
type OpenAIProvider struct {
	client *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// wireMessage carries either a plain string content or the content-array
// form used for multi-part (text + image) turns.
type wireMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

// chatResponse is the single explicit schema a well-formed completion must
// satisfy: choices[0].message.content non-empty.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete issues one completion request and classifies the outcome.
func (p *OpenAIProvider) Complete(ctx context.Context, cfg Config, transcript []Message) (*Completion, error) {
	body := chatRequest{
		Model:       cfg.Model,
		Messages:    toWire(transcript),
		Temperature: 0.7,
		MaxTokens:   500,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: model %s", ErrRateLimited, cfg.Model)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, string(snippet))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: no completion in response", ErrMalformed)
	}

	model := parsed.Model
	if model == "" {
		model = cfg.Model
	}
	return &Completion{
		Content:      parsed.Choices[0].Message.Content,
		Model:        model,
		FinishReason: parsed.Choices[0].FinishReason,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

// toWire converts transcript messages to the wire form, switching to the
// content-array shape only when an image is attached.
func toWire(transcript []Message) []wireMessage {
	out := make([]wireMessage, len(transcript))
	for i, m := range transcript {
		if m.ImageURL == "" {
			out[i] = wireMessage{Role: m.Role, Content: m.Content}
			continue
		}
		out[i] = wireMessage{
			Role: m.Role,
			Content: []contentPart{
				{Type: "text", Text: m.Content},
				{Type: "image_url", ImageURL: &imageRef{URL: m.ImageURL}},
			},
		}
	}
	return out
}
