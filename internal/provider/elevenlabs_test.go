package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satielang/audiogen-service/internal/core"
	"github.com/satielang/audiogen-service/internal/provider"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func TestElevenLabsMissingCredentialSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := provider.NewElevenLabs(
		srv.URL, time.Second, provider.NewKeyChain(), newTestLogger(t),
	)

	_, err := adapter.Generate(context.Background(), core.Request{
		Prompt:   "rain on a tin roof",
		Provider: core.ProviderElevenLabs,
	})

	require.ErrorIs(t, err, core.ErrMissingCredential)
	assert.Contains(t, err.Error(), "API key not configured")
	assert.Equal(t, int64(0), calls.Load(), "no network call may be attempted without a key")
}

func TestElevenLabsSendsAPIContract(t *testing.T) {
	t.Parallel()

	type captured struct {
		apiKey    string
		accept    string
		path      string
		text      string
		duration  float64
		influence float64
	}

	var got captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any

		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		got = captured{
			apiKey:    r.Header.Get("xi-api-key"),
			accept:    r.Header.Get("Accept"),
			path:      r.URL.Path,
			text:      body["text"].(string),
			duration:  body["duration_seconds"].(float64),
			influence: body["prompt_influence"].(float64),
		}

		// Refusing here keeps the test off the MP3 decode path.
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	adapter := provider.NewElevenLabs(
		srv.URL, time.Second, provider.NewKeyChain(), newTestLogger(t),
	)

	_, err := adapter.Generate(context.Background(), core.Request{
		Prompt:   "distant thunder",
		Provider: core.ProviderElevenLabs,
		Options: core.Options{
			APIKeyOverride:  "header-key",
			DurationSeconds: 4.5,
			PromptInfluence: 0.7,
		},
	})
	require.Error(t, err)

	assert.Equal(t, "/v1/sound-generation", got.path)
	assert.Equal(t, "header-key", got.apiKey)
	assert.Equal(t, "audio/mpeg", got.accept)
	assert.Equal(t, "distant thunder", got.text)
	assert.InDelta(t, 4.5, got.duration, 1e-9)
	assert.InDelta(t, 0.7, got.influence, 1e-9)
}

func TestElevenLabsNonOKStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"quota exceeded"}`))
	}))
	defer srv.Close()

	adapter := provider.NewElevenLabs(
		srv.URL, time.Second,
		provider.NewKeyChain(staticKey("configured")), newTestLogger(t),
	)

	_, err := adapter.Generate(context.Background(), core.Request{
		Prompt:   "crowd cheering",
		Provider: core.ProviderElevenLabs,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestElevenLabsEmptyPayloadIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := provider.NewElevenLabs(
		srv.URL, time.Second,
		provider.NewKeyChain(staticKey("configured")), newTestLogger(t),
	)

	_, err := adapter.Generate(context.Background(), core.Request{
		Prompt:   "footsteps on gravel",
		Provider: core.ProviderElevenLabs,
	})

	require.ErrorIs(t, err, core.ErrEmptyAudio)
}

func TestElevenLabsRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	adapter := provider.NewElevenLabs(
		"http://127.0.0.1:0", time.Second, provider.NewKeyChain(), newTestLogger(t),
	)

	_, err := adapter.Generate(context.Background(), core.Request{
		Provider: core.ProviderElevenLabs,
	})
	require.ErrorIs(t, err, core.ErrPromptEmpty)
}

func TestElevenLabsStatusTracksKeyChain(t *testing.T) {
	t.Parallel()

	withKey := provider.NewElevenLabs(
		"", time.Second, provider.NewKeyChain(staticKey("k")), newTestLogger(t),
	)
	assert.True(t, withKey.Status().Available)

	withoutKey := provider.NewElevenLabs(
		"", time.Second, provider.NewKeyChain(), newTestLogger(t),
	)
	assert.False(t, withoutKey.Status().Available)
}
