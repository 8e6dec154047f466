package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlayer struct {
	id      string
	playing bool
	pauses  int
	failOn  string
}

func (f *fakePlayer) ID() string { return f.id }

func (f *fakePlayer) Play(context.Context) error {
	if f.failOn == "play" {
		return errors.New("boom")
	}
	f.playing = true
	return nil
}

func (f *fakePlayer) Pause(context.Context) error {
	f.playing = false
	f.pauses++
	return nil
}

func TestStart_PausesOthers(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(zap.NewNop())
	a := &fakePlayer{id: "a"}
	b := &fakePlayer{id: "b"}
	c.Register(a)
	c.Register(b)

	require.NoError(t, c.Start(ctx, "a"))
	require.NoError(t, c.Start(ctx, "b"))

	assert.False(t, a.playing)
	assert.True(t, b.playing)
	assert.Equal(t, []string{"b"}, c.Playing())

	c.StopAll(ctx)
	assert.False(t, b.playing)
	assert.Empty(t, c.Playing())
}

func TestStart_UnknownAndFailing(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(zap.NewNop())
	require.ErrorIs(t, c.Start(ctx, "nope"), ErrUnknownPlayer)

	bad := &fakePlayer{id: "bad", failOn: "play"}
	c.Register(bad)
	require.Error(t, c.Start(ctx, "bad"))
	assert.Empty(t, c.Playing())
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(zap.NewNop())
	a := &fakePlayer{id: "a"}
	c.Register(a)
	require.NoError(t, c.Start(ctx, "a"))
	c.Unregister("a")
	c.StopAll(ctx)
	assert.Equal(t, 0, a.pauses)
}
