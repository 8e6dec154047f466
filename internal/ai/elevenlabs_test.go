package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"meditation-bot/internal/apikeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newKeys(t *testing.T, keys ...string) *apikeys.KeyManager {
	t.Helper()
	km, err := apikeys.NewManager("elevenlabs", keys, zap.NewNop())
	require.NoError(t, err)
	return km
}

func TestTextToSpeech_RotatesKeyOnQuota(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "pcm_24000", r.URL.Query().Get("output_format"))
		if r.Header.Get("xi-api-key") == "k1" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		settings := body["voice_settings"].(map[string]any)
		assert.Equal(t, 0.85, settings["speed"])
		w.Write([]byte{1, 2, 3, 4})
	}))
	defer srv.Close()

	svc := NewElevenLabsService(newKeys(t, "k1", "k2"), "model", "", zap.NewNop(), WithBaseURL(srv.URL))
	audio, err := svc.TextToSpeech(context.Background(), "voice-1", "hello", 0.85)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, audio)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTextToSpeech_AllKeysExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewElevenLabsService(newKeys(t, "k1", "k2"), "model", "", zap.NewNop(), WithBaseURL(srv.URL))
	_, err := svc.TextToSpeech(context.Background(), "v", "hello", 1)
	require.ErrorIs(t, err, apikeys.ErrAllKeysExhausted)
}

func TestListVoices_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"voices":[{"voice_id":"a","name":"Anna","labels":{"gender":"female"}},{"voice_id":"b","name":"Ben","labels":{"gender":"male"}}]}`))
	}))
	defer srv.Close()

	svc := NewElevenLabsService(newKeys(t, "k1"), "model", "", zap.NewNop(), WithBaseURL(srv.URL))
	voices, err := svc.ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 2)
	assert.Equal(t, "female", voices[0].GenderLabel())

	_, err = svc.ListVoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListVoices_FallsBackToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "voices.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"voices":[{"voice_id":"f","name":"File","gender":"Male"}]}`), 0o600))

	svc := NewElevenLabsService(newKeys(t, "k1"), "model", path, zap.NewNop(), WithBaseURL(srv.URL))
	voices, err := svc.ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "male", voices[0].GenderLabel())
}

func TestMeditationPrompt(t *testing.T) {
	p := meditationPrompt("sleep", "de")
	assert.Contains(t, p, "sleep")
	assert.Contains(t, p, "German")
	assert.Contains(t, meditationPrompt("focus", "xx"), "English")
}

func TestTextToSpeech_TransportErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	svc := NewElevenLabsService(newKeys(t, "k1"), "model", "", zap.NewNop(), WithBaseURL(baseURL))
	_, err := svc.TextToSpeech(context.Background(), "v", "hello", 1)
	require.ErrorIs(t, err, apikeys.ErrAllKeysExhausted)
	assert.Contains(t, err.Error(), "connection refused")
}
