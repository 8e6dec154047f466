package apikeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewManager_RejectsEmpty(t *testing.T) {
	_, err := NewManager("gemini", []string{"", " "}, zap.NewNop())
	require.ErrorIs(t, err, ErrNoKeysAvailable)
}

func TestRotateKey_WrapsAndReportsExhaustion(t *testing.T) {
	km, err := NewManager("elevenlabs", []string{"k1", "k2", ""}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, km.Len())
	assert.Equal(t, "k1", km.GetCurrentKey())

	require.NoError(t, km.RotateKey())
	assert.Equal(t, "k2", km.GetCurrentKey())

	require.ErrorIs(t, km.RotateKey(), ErrAllKeysExhausted)
	assert.Equal(t, "k1", km.GetCurrentKey())
	assert.Equal(t, 0, km.CurrentIndex())
}
