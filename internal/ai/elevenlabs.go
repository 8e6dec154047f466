package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"meditation-bot/internal/apikeys"
	"meditation-bot/internal/models"
	"meditation-bot/internal/proxy"

	"go.uber.org/zap"
)

const (
	elevenLabsAPIURL = "https://api.elevenlabs.io/v1"
	pcmOutputFormat  = "pcm_24000"
	voicesCacheTTL   = 10 * time.Minute
)

var ErrNoVoices = errors.New("no voices available")

type ElevenLabsService struct {
	keyManager   *apikeys.KeyManager
	proxyManager *proxy.Manager
	modelID      string
	baseURL      string
	httpClient   *http.Client
	voicesFile   string
	logger       *zap.Logger

	mu       sync.RWMutex
	voices   []models.Voice
	cachedAt time.Time
}

type ElevenLabsOption func(*ElevenLabsService)

func WithBaseURL(u string) ElevenLabsOption {
	return func(s *ElevenLabsService) { s.baseURL = u }
}

// WithProxyManager routes requests through rotating proxies.
func WithProxyManager(pm *proxy.Manager) ElevenLabsOption {
	return func(s *ElevenLabsService) { s.proxyManager = pm }
}

func NewElevenLabsService(keyManager *apikeys.KeyManager, modelID, voicesFile string, logger *zap.Logger, opts ...ElevenLabsOption) *ElevenLabsService {
	service := &ElevenLabsService{
		keyManager: keyManager,
		modelID:    modelID,
		baseURL:    elevenLabsAPIURL,
		voicesFile: voicesFile,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(service)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if service.proxyManager != nil {
		transport.Proxy = service.proxyManager.ProxyFunc
	}
	service.httpClient = &http.Client{
		Timeout:   time.Minute * 2,
		Transport: transport,
	}
	return service
}

// ListVoices returns the account's voices, cached for a few minutes. When the
// API is unreachable the voices file is used instead.
func (s *ElevenLabsService) ListVoices(ctx context.Context) ([]models.Voice, error) {
	s.mu.RLock()
	if len(s.voices) > 0 && time.Since(s.cachedAt) < voicesCacheTTL {
		voices := s.voices
		s.mu.RUnlock()
		return voices, nil
	}
	s.mu.RUnlock()

	voices, err := s.fetchVoices(ctx)
	if err != nil {
		s.logger.Warn("Fetching voices failed, falling back to file", zap.String("file", s.voicesFile), zap.Error(err))
		voices, err = loadVoicesFromFile(s.voicesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load voices: %w", err)
		}
	}
	if len(voices) == 0 {
		return nil, ErrNoVoices
	}

	s.mu.Lock()
	s.voices = voices
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return voices, nil
}

func (s *ElevenLabsService) fetchVoices(ctx context.Context) ([]models.Voice, error) {
	resp, err := s.do(ctx, func(key string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/voices", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("xi-api-key", key)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var voicesFile models.VoicesFile
	if err := json.NewDecoder(resp.Body).Decode(&voicesFile); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}
	return voicesFile.Voices, nil
}

func loadVoicesFromFile(filePath string) ([]models.Voice, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var voicesFile models.VoicesFile
	if err := json.Unmarshal(data, &voicesFile); err != nil {
		return nil, err
	}
	return voicesFile.Voices, nil
}

// TextToSpeech returns raw 24 kHz mono 16-bit PCM.
func (s *ElevenLabsService) TextToSpeech(ctx context.Context, voiceID, text string, tempo float64) ([]byte, error) {
	payload := map[string]interface{}{
		"text":     text,
		"model_id": s.modelID,
		"voice_settings": map[string]float64{
			"stability":        0.6,
			"similarity_boost": 0.75,
			"speed":            tempo,
		},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", s.baseURL, url.PathEscape(voiceID), pcmOutputFormat)
	resp, err := s.do(ctx, func(key string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonPayload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("xi-api-key", key)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response body: %w", err)
	}
	return audioBytes, nil
}

// do sends the request built by build, rotating keys on quota or auth errors
// and proxies on transport errors. The caller closes the returned body.
func (s *ElevenLabsService) do(ctx context.Context, build func(key string) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for i := 0; i < s.keyManager.Len(); i++ {
		req, err := build(s.keyManager.GetCurrentKey())
		if err != nil {
			return nil, err
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("ElevenLabs request failed", zap.Int("attempt", i+1), zap.Error(err))
			lastErr = err
			if s.proxyManager != nil {
				s.proxyManager.RotateProxy()
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized {
			s.logger.Warn("ElevenLabs quota or auth error, rotating key", zap.Int("attempt", i+1), zap.String("status", resp.Status))
			resp.Body.Close()
			lastErr = fmt.Errorf("ElevenLabs returned %s", resp.Status)
			s.keyManager.RotateKey()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("ElevenLabs returned non-200 status: %s - %s", resp.Status, string(body))
		}
		return resp, nil
	}

	return nil, fmt.Errorf("ElevenLabs: %w: %v", apikeys.ErrAllKeysExhausted, lastErr)
}
