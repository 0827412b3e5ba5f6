package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	audio, err := c.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), audio)
}

func TestSynthesizeRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithMaxElapsed(5*time.Second))
	audio, err := c.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), audio)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestSynthesizeClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithMaxElapsed(5*time.Second))
	_, err := c.Synthesize(context.Background(), "hello")
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSynthesizeUnconfigured(t *testing.T) {
	c := New("", "")
	_, err := c.Synthesize(context.Background(), "hello")
	assert.Error(t, err)
}
