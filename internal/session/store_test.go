package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetDefaultThenSet(t *testing.T) {
	ctx := context.Background()
	var s Store = NewMemory()

	v, err := s.Get(ctx, KeyLanguage, "en")
	require.NoError(t, err)
	require.Equal(t, "en", v)

	require.NoError(t, s.Set(ctx, KeyLanguage, "de"))
	v, err = s.Get(ctx, KeyLanguage, "en")
	require.NoError(t, err)
	require.Equal(t, "de", v)
}
