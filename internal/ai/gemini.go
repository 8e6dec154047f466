package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"meditation-bot/internal/apikeys"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-2.5-flash"

var languageNames = map[string]string{
	"en": "English",
	"de": "German",
}

type GeminiService struct {
	keyManager *apikeys.KeyManager
	clients    map[string]*genai.Client
	logger     *zap.Logger
}

func NewGeminiService(ctx context.Context, keyManager *apikeys.KeyManager, keys []string, logger *zap.Logger) (*GeminiService, error) {
	clients := make(map[string]*genai.Client, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("could not create new genai client: %w", err)
		}
		clients[key] = client
	}

	return &GeminiService{
		keyManager: keyManager,
		clients:    clients,
		logger:     logger,
	}, nil
}

func (s *GeminiService) Close() {
	for _, c := range s.clients {
		c.Close()
	}
}

// GenerateMeditationText writes a spoken meditation script for the given type and language.
func (s *GeminiService) GenerateMeditationText(ctx context.Context, meditationType, language string) (string, error) {
	s.logger.Info("Generating meditation text", zap.String("type", meditationType), zap.String("language", language))
	return s.generate(ctx, meditationPrompt(meditationType, language))
}

func meditationPrompt(meditationType, language string) string {
	langName, ok := languageNames[language]
	if !ok {
		langName = languageNames["en"]
	}
	return fmt.Sprintf(
		"Write a guided %s meditation script in %s that will be read aloud by a calm narrator. "+
			"Use between 300 and 600 words. Write plain flowing sentences without headings, lists, stage directions or markdown. "+
			"Mark longer pauses with an ellipsis (...).",
		meditationType,
		langName,
	)
}

func (s *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i := 0; i < s.keyManager.Len(); i++ {
		client, ok := s.clients[s.keyManager.GetCurrentKey()]
		if !ok {
			return "", errors.New("no gemini client for the current key")
		}

		res, err := client.GenerativeModel(geminiModel).GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			return extractText(res)
		}
		lastErr = err

		if !isQuotaError(err) {
			return "", fmt.Errorf("gemini content generation failed: %w", err)
		}
		s.logger.Warn("Gemini key rejected, rotating", zap.Int("attempt", i+1), zap.Error(err))
		if rotateErr := s.keyManager.RotateKey(); rotateErr != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", apikeys.ErrAllKeysExhausted, lastErr)
}

func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code == http.StatusForbidden || gerr.Code == http.StatusUnauthorized
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

func extractText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no content")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response did not contain text")
	}
	return strings.TrimSpace(sb.String()), nil
}
