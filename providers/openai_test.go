package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor.chat/providers"
)

func newServer(t *testing.T, handler http.HandlerFunc) providers.Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return providers.Config{Model: "test-model", BaseURL: srv.URL, APIKey: "test-key"}
}

func completionBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"model": "test-model",
		"choices": []map[string]interface{}{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 7},
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)

		json.NewEncoder(w).Encode(completionBody("Chlorophyll absorbs light."))
	})

	p := providers.NewOpenAIProvider()
	got, err := p.Complete(context.Background(), cfg, []providers.Message{
		{Role: "system", Content: "You are a tutor."},
		{Role: "user", Content: "What is photosynthesis?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Chlorophyll absorbs light.", got.Content)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 12, got.InputTokens)
	assert.Equal(t, 7, got.OutputTokens)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestCompleteClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: providers.ErrRateLimited,
		},
		{
			name: "payment required",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
			},
			want: providers.ErrRejected,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: providers.ErrRejected,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			want: providers.ErrMalformed,
		},
		{
			name: "missing completion field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
			},
			want: providers.ErrMalformed,
		},
		{
			name: "empty completion",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(completionBody(""))
			},
			want: providers.ErrMalformed,
		},
	}

	p := providers.NewOpenAIProvider()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newServer(t, tt.handler)
			_, err := p.Complete(context.Background(), cfg, []providers.Message{{Role: "user", Content: "hi"}})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompleteMultiPart(t *testing.T) {
	cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)

		// Image turns must use the content-array form.
		var parts []struct {
			Type     string `json:"type"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
		}
		require.NoError(t, json.Unmarshal(req.Messages[0].Content, &parts))
		require.Len(t, parts, 2)
		assert.Equal(t, "text", parts[0].Type)
		assert.Equal(t, "image_url", parts[1].Type)
		assert.Equal(t, "https://example.com/diagram.png", parts[1].ImageURL.URL)

		json.NewEncoder(w).Encode(completionBody("That is a chloroplast."))
	})

	p := providers.NewOpenAIProvider()
	got, err := p.Complete(context.Background(), cfg, []providers.Message{
		{Role: "user", Content: "What is this?", ImageURL: "https://example.com/diagram.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "That is a chloroplast.", got.Content)
}
