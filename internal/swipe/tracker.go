// Package swipe turns raw horizontal pointer coordinates and arrow keys into
// previous/next navigation intents.
package swipe

import "sync"

const (
	MinSwipeDistance   = 30.0
	DirectionThreshold = 10.0
)

type Direction int

const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
)

type Intent int

const (
	IntentNone Intent = iota
	IntentNext
	IntentPrevious
)

func (i Intent) String() string {
	switch i {
	case IntentNext:
		return "next"
	case IntentPrevious:
		return "previous"
	default:
		return "none"
	}
}

type Navigator interface {
	Next()
	Previous()
}

type Tracker struct {
	mu        sync.Mutex
	nav       Navigator
	startX    *float64
	currentX  *float64
	direction Direction
}

func NewTracker(nav Navigator) *Tracker {
	return &Tracker{nav: nav}
}

func (t *Tracker) OnTouchStart(x float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startX = &x
	t.currentX = nil
	t.direction = DirectionNone
}

// OnTouchMove records the pointer and reports whether the default scroll must
// be suppressed. Handlers must be registered as non-passive for this to work.
func (t *Tracker) OnTouchMove(x float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startX == nil {
		return false
	}
	t.currentX = &x
	switch delta := *t.startX - x; {
	case delta > DirectionThreshold:
		t.direction = DirectionLeft
	case delta < -DirectionThreshold:
		t.direction = DirectionRight
	default:
		t.direction = DirectionNone
	}
	return true
}

func (t *Tracker) OnTouchEnd() Intent {
	t.mu.Lock()
	intent := IntentNone
	if t.startX != nil && t.currentX != nil {
		distance := *t.startX - *t.currentX
		switch {
		case distance >= MinSwipeDistance:
			intent = IntentNext
		case distance <= -MinSwipeDistance:
			intent = IntentPrevious
		}
	}
	t.startX = nil
	t.currentX = nil
	t.direction = DirectionNone
	nav := t.nav
	t.mu.Unlock()

	return dispatch(nav, intent)
}

// HandleKey maps ArrowLeft and ArrowRight onto the same navigation as swipes.
func (t *Tracker) HandleKey(key string) Intent {
	intent := IntentNone
	switch key {
	case "ArrowLeft":
		intent = IntentPrevious
	case "ArrowRight":
		intent = IntentNext
	}

	t.mu.Lock()
	nav := t.nav
	t.mu.Unlock()
	return dispatch(nav, intent)
}

func (t *Tracker) Direction() Direction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.direction
}

// Detach drops the navigator and any gesture in progress.
func (t *Tracker) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nav = nil
	t.startX = nil
	t.currentX = nil
	t.direction = DirectionNone
}

func dispatch(nav Navigator, intent Intent) Intent {
	if nav == nil {
		return intent
	}
	switch intent {
	case IntentNext:
		nav.Next()
	case IntentPrevious:
		nav.Previous()
	}
	return intent
}
