package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramBotToken  string
	GeminiAPIKeys     []string
	ElevenLabsAPIKeys []string
	ElevenLabsModelID string
	VoicesFile        string
	ProxyURLs         []string
	DefaultLang       string
	DatabasePath      string
	NATSURL           string
	NATSStoreDir      string
	BackgroundsDir    string
	BackgroundBucket  string
	HTTPAddr          string
	LogLevel          string
}

// Load reads .env (when present) and the process environment. The bot token
// is only required when requireBot is set.
func Load(requireBot bool) (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	get := func(key, fallback string, required bool) string {
		value, err := getEnv(key, fallback, required)
		if err != nil {
			missing = append(missing, key)
		}
		return value
	}

	cfg := &Config{
		TelegramBotToken:  get("TELEGRAM_BOT_TOKEN", "", requireBot),
		GeminiAPIKeys:     splitList(get("GEMINI_API_KEYS", "", true)),
		ElevenLabsAPIKeys: splitList(get("ELEVENLABS_API_KEYS", "", true)),
		ElevenLabsModelID: get("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2", false),
		VoicesFile:        get("VOICES_FILE", "voices.json", false),
		ProxyURLs:         splitList(get("PROXY_URLS", "", false)),
		DefaultLang:       get("DEFAULT_LANG", "en", false),
		DatabasePath:      get("DATABASE_PATH", "./meditation_bot.db", false),
		NATSURL:           get("NATS_URL", "", false),
		NATSStoreDir:      get("NATS_STORE_DIR", "./nats-data", false),
		BackgroundsDir:    get("BACKGROUNDS_DIR", "./assets/backgrounds", false),
		BackgroundBucket:  get("BACKGROUND_BUCKET", "meditation-backgrounds", false),
		HTTPAddr:          get("HTTP_ADDR", ":8080", false),
		LogLevel:          get("LOG_LEVEL", "info", false),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getEnv(key, fallback string, required bool) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		if required {
			return "", fmt.Errorf("%s is not set", key)
		}
		return fallback, nil
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
