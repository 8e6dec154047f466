package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrNoProxiesAvailable = errors.New("no proxy URLs available")
var ErrAllProxiesExhausted = errors.New("all available proxies have been exhausted")

// Manager rotates outbound HTTP proxies for the TTS client.
type Manager struct {
	proxies      []*url.URL
	currentIndex int
	mutex        sync.Mutex
	logger       *zap.Logger
}

func NewManager(proxyStrings []string, logger *zap.Logger) (*Manager, error) {
	var proxies []*url.URL
	for _, p := range proxyStrings {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		proxyURL, err := url.Parse(p)
		if err != nil || proxyURL.Host == "" {
			logger.Warn("Skipping unparsable proxy URL", zap.String("proxy", p), zap.Error(err))
			continue
		}
		proxies = append(proxies, proxyURL)
	}

	if len(proxies) == 0 {
		return nil, ErrNoProxiesAvailable
	}

	return &Manager{
		proxies: proxies,
		logger:  logger,
	}, nil
}

func (pm *Manager) GetCurrentProxy() *url.URL {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	return pm.proxies[pm.currentIndex]
}

// ProxyFunc plugs the manager into http.Transport.Proxy.
func (pm *Manager) ProxyFunc(*http.Request) (*url.URL, error) {
	return pm.GetCurrentProxy(), nil
}

func (pm *Manager) RotateProxy() error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	failed := pm.proxies[pm.currentIndex].Host
	pm.currentIndex++

	if pm.currentIndex >= len(pm.proxies) {
		pm.logger.Warn("All proxies have been tried, resetting to the first one", zap.String("failed", failed))
		pm.currentIndex = 0
		return ErrAllProxiesExhausted
	}

	pm.logger.Info("Switched proxy", zap.String("failed", failed), zap.String("proxy", pm.proxies[pm.currentIndex].Host))
	return nil
}

func (pm *Manager) GetTotalProxies() int {
	return len(pm.proxies)
}
