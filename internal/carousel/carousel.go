// Package carousel keeps a one-at-a-time selector in step with an externally
// owned selected value.
package carousel

import (
	"sync"
	"time"
)

const DefaultLockWindow = 300 * time.Millisecond

type Option struct {
	Value string
	Label string
	// Sentinel options are actions such as "upload new". They can be shown but never selected.
	Sentinel bool
}

type SelectFunc func(Option)

type Controller struct {
	mu          sync.Mutex
	options     []Option
	index       int
	onSelect    SelectFunc
	lockWindow  time.Duration
	lockedUntil time.Time
	now         func() time.Time
}

type ControllerOption func(*Controller)

func WithLockWindow(d time.Duration) ControllerOption {
	return func(c *Controller) { c.lockWindow = d }
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func New(onSelect SelectFunc, opts ...ControllerOption) *Controller {
	c := &Controller{
		onSelect:   onSelect,
		lockWindow: DefaultLockWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.onSelect == nil {
		c.onSelect = func(Option) {}
	}
	return c
}

// SetOptions replaces the option list. The current value is followed if it is
// still present, otherwise the index is clamped into range.
func (c *Controller) SetOptions(options []Option) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var currentValue string
	hadCurrent := c.index >= 0 && c.index < len(c.options)
	if hadCurrent {
		currentValue = c.options[c.index].Value
	}

	c.options = append([]Option(nil), options...)

	if hadCurrent {
		if i := c.indexOf(currentValue); i >= 0 {
			c.index = i
			return
		}
	}
	c.index = clamp(c.index, len(c.options))
}

// SyncFromExternalSelection moves the index to value without notifying onSelect.
func (c *Controller) SyncFromExternalSelection(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(value); i >= 0 && i != c.index {
		c.index = i
	}
}

func (c *Controller) Next() {
	c.step(1)
}

func (c *Controller) Previous() {
	c.step(-1)
}

func (c *Controller) step(delta int) {
	c.mu.Lock()
	n := len(c.options)
	now := c.now()
	if n == 0 || now.Before(c.lockedUntil) {
		c.mu.Unlock()
		return
	}
	c.lockedUntil = now.Add(c.lockWindow)
	c.index = ((c.index+delta)%n + n) % n
	opt := c.options[c.index]
	c.mu.Unlock()

	if !opt.Sentinel {
		c.onSelect(opt)
	}
}

// SelectByValue selects value explicitly. onSelect fires only when the selection changes.
func (c *Controller) SelectByValue(value string) {
	c.mu.Lock()
	i := c.indexOf(value)
	if i < 0 || i == c.index {
		c.mu.Unlock()
		return
	}
	c.index = i
	opt := c.options[i]
	c.mu.Unlock()

	if !opt.Sentinel {
		c.onSelect(opt)
	}
}

func (c *Controller) Current() (Option, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.options) == 0 {
		return Option{}, false
	}
	return c.options[c.index], true
}

func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.options)
}

func (c *Controller) Options() []Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Option(nil), c.options...)
}

// Locked reports whether a navigation transition is still in flight.
func (c *Controller) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.lockedUntil)
}

func (c *Controller) indexOf(value string) int {
	for i, o := range c.options {
		if o.Value == value {
			return i
		}
	}
	return -1
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
