// Package playback keeps at most one audio preview audible at a time.
package playback

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrUnknownPlayer = errors.New("unknown player")

type Player interface {
	ID() string
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
}

type Coordinator struct {
	mu      sync.Mutex
	players map[string]Player
	active  map[string]bool
	logger  *zap.Logger
}

func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{
		players: make(map[string]Player),
		active:  make(map[string]bool),
		logger:  logger,
	}
}

func (c *Coordinator) Register(p Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[p.ID()] = p
}

func (c *Coordinator) Unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, id)
	delete(c.active, id)
}

// Start pauses every other active player before playing id.
func (c *Coordinator) Start(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	for otherID := range c.active {
		if otherID != id {
			c.pauseLocked(ctx, otherID)
		}
	}
	if err := p.Play(ctx); err != nil {
		return err
	}
	c.active[id] = true
	return nil
}

func (c *Coordinator) StopAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.active {
		c.pauseLocked(ctx, id)
	}
}

func (c *Coordinator) Playing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

func (c *Coordinator) pauseLocked(ctx context.Context, id string) {
	delete(c.active, id)
	p, ok := c.players[id]
	if !ok {
		return
	}
	if err := p.Pause(ctx); err != nil {
		c.logger.Warn("Failed to pause player", zap.String("player", id), zap.Error(err))
	}
}
