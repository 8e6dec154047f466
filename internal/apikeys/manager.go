package apikeys

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrNoKeysAvailable = errors.New("no API keys available")
var ErrAllKeysExhausted = errors.New("all available API keys have been exhausted")

// KeyManager rotates through a provider's API keys when one is rate limited or rejected.
type KeyManager struct {
	name         string
	keys         []string
	currentIndex int
	mutex        sync.Mutex
	logger       *zap.Logger
}

// NewManager drops blank entries so a trailing comma in the env var is harmless.
func NewManager(name string, keys []string, logger *zap.Logger) (*KeyManager, error) {
	var cleaned []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoKeysAvailable
	}
	return &KeyManager{
		name:   name,
		keys:   cleaned,
		logger: logger,
	}, nil
}

func (km *KeyManager) GetCurrentKey() string {
	km.mutex.Lock()
	defer km.mutex.Unlock()
	return km.keys[km.currentIndex]
}

func (km *KeyManager) CurrentIndex() int {
	km.mutex.Lock()
	defer km.mutex.Unlock()
	return km.currentIndex
}

// RotateKey moves to the next key. After the last key it wraps to the first
// and returns ErrAllKeysExhausted.
func (km *KeyManager) RotateKey() error {
	km.mutex.Lock()
	defer km.mutex.Unlock()

	km.currentIndex++
	if km.currentIndex >= len(km.keys) {
		km.logger.Warn("All API keys have been tried", zap.String("provider", km.name))
		km.currentIndex = 0
		return ErrAllKeysExhausted
	}

	km.logger.Info("Rotated API key", zap.String("provider", km.name), zap.Int("key", km.currentIndex+1))
	return nil
}

func (km *KeyManager) Len() int {
	return len(km.keys)
}
