package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewManager_SkipsInvalid(t *testing.T) {
	_, err := NewManager([]string{"", "not a url"}, zap.NewNop())
	require.ErrorIs(t, err, ErrNoProxiesAvailable)

	pm, err := NewManager([]string{"http://a:8080", "::bad", "http://b:8080"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, pm.GetTotalProxies())
}

func TestRotateProxy(t *testing.T) {
	pm, err := NewManager([]string{"http://a:8080", "http://b:8080"}, zap.NewNop())
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "https://api.elevenlabs.io", nil)
	u, err := pm.ProxyFunc(req)
	require.NoError(t, err)
	assert.Equal(t, "a:8080", u.Host)

	require.NoError(t, pm.RotateProxy())
	assert.Equal(t, "b:8080", pm.GetCurrentProxy().Host)
	require.ErrorIs(t, pm.RotateProxy(), ErrAllProxiesExhausted)
	assert.Equal(t, "a:8080", pm.GetCurrentProxy().Host)
}
