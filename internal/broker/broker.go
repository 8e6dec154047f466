// Package broker wraps the NATS connection used for background audio blobs
// and generation events.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectGenerated = "meditation.generated"
	readyTimeout     = 10 * time.Second
)

var ErrObjectNotFound = errors.New("object not found")

type Broker struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	embedded *server.Server
	logger   *zap.Logger
}

// Connect dials url, or starts an in-process JetStream server in storeDir when url is empty.
func Connect(url, storeDir string, logger *zap.Logger) (*Broker, error) {
	b := &Broker{logger: logger}

	if url == "" {
		ns, err := server.NewServer(&server.Options{
			Host:      "127.0.0.1",
			Port:      server.RANDOM_PORT,
			JetStream: true,
			StoreDir:  storeDir,
			NoSigs:    true,
			NoLog:     true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
		}
		ns.Start()
		if !ns.ReadyForConnections(readyTimeout) {
			ns.Shutdown()
			return nil, errors.New("embedded NATS server did not become ready")
		}
		b.embedded = ns
		url = ns.ClientURL()
		logger.Info("Started embedded NATS server", zap.String("url", url), zap.String("store_dir", storeDir))
	}

	conn, err := nats.Connect(url, nats.Name("meditation-bot"))
	if err != nil {
		b.shutdownEmbedded()
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		b.shutdownEmbedded()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	b.conn = conn
	b.js = js
	return b, nil
}

func (b *Broker) Conn() *nats.Conn {
	return b.conn
}

func (b *Broker) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
	b.shutdownEmbedded()
}

func (b *Broker) shutdownEmbedded() {
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded.WaitForShutdown()
		b.embedded = nil
	}
}

// ObjectStore binds to bucket, creating it on first use.
func (b *Broker) ObjectStore(bucket string) (*ObjectStore, error) {
	store, err := b.js.ObjectStore(bucket)
	if errors.Is(err, nats.ErrStreamNotFound) || errors.Is(err, nats.ErrBucketNotFound) {
		store, err = b.js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucket,
			Description: fmt.Sprintf("Storage for the %s bucket.", bucket),
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object store bucket '%s': %w", bucket, err)
	}
	return &ObjectStore{bucket: bucket, store: store}, nil
}

type ObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

func (o *ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if _, err := o.store.PutBytes(key, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, o.bucket, err)
	}
	return nil
}

func (o *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := o.store.GetBytes(key, nats.Context(ctx))
	if errors.Is(err, nats.ErrObjectNotFound) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, o.bucket, err)
	}
	return data, nil
}

func (o *ObjectStore) Delete(_ context.Context, key string) error {
	err := o.store.Delete(key)
	if errors.Is(err, nats.ErrObjectNotFound) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w", key, o.bucket, err)
	}
	return nil
}

// GeneratedEvent is published after every finished meditation.
type GeneratedEvent struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"userId"`
	MeditationType string    `json:"meditationType"`
	VoiceID        string    `json:"voiceId"`
	Background     string    `json:"background"`
	Words          int       `json:"words"`
	Bytes          int       `json:"bytes"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (b *Broker) PublishGenerated(ev GeneratedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode generated event: %w", err)
	}
	if err := b.conn.Publish(SubjectGenerated, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", SubjectGenerated, err)
	}
	return nil
}
