package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbedded_ObjectStoreRoundTrip(t *testing.T) {
	b, err := Connect("", t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	store, err := b.ObjectStore("test-backgrounds")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "bg-1", []byte("RIFF....WAVE")))

	got, err := store.Get(ctx, "bg-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF....WAVE"), got)

	again, err := b.ObjectStore("test-backgrounds")
	require.NoError(t, err)
	got, err = again.Get(ctx, "bg-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF....WAVE"), got)

	require.NoError(t, store.Delete(ctx, "bg-1"))
	_, err = store.Get(ctx, "bg-1")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestRemote_PublishGenerated(t *testing.T) {
	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)
	defer natsServer.Shutdown()

	b, err := Connect(natsServer.ClientURL(), "", zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	sub, err := b.Conn().SubscribeSync(SubjectGenerated)
	require.NoError(t, err)

	ev := GeneratedEvent{ID: "m1", UserID: 5, MeditationType: "sleep", Words: 120, CreatedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, b.PublishGenerated(ev))

	var msg *nats.Msg
	msg, err = sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got GeneratedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, ev, got)
}
