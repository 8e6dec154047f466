package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/carousel"
	"meditation-bot/internal/playback"
	"meditation-bot/internal/swipe"
	"meditation-bot/internal/wizard"

	"go.uber.org/zap"
)

// Picker names one of the carousels shown by the wizard.
type Picker string

const (
	PickerType       Picker = "type"
	PickerVoice      Picker = "voice"
	PickerBackground Picker = "bg"
	PickerTempo      Picker = "tempo"
)

// UploadOption is the sentinel card in the background carousel.
const UploadOption = "upload"

// PickerForStep returns the carousel shown on step, if any.
func PickerForStep(step int) (Picker, bool) {
	switch step {
	case wizard.StepType:
		return PickerType, true
	case wizard.StepVoice:
		return PickerVoice, true
	case wizard.StepBackground:
		return PickerBackground, true
	case wizard.StepReview:
		return PickerTempo, true
	default:
		return "", false
	}
}

func TempoValue(t float64) string {
	return fmt.Sprintf("%.2f", t)
}

// Session is the in-memory state of one user's creation flow. It is never persisted.
type Session struct {
	Machine   *wizard.Machine
	Playback  *playback.Coordinator
	Carousels map[Picker]*carousel.Controller
	Swipes    map[Picker]*swipe.Tracker

	mu              sync.Mutex
	wizardMessageID int
	busy            bool
	activities      map[string]*activity.View
}

func NewSession(logger *zap.Logger) *Session {
	s := &Session{
		Playback:   playback.NewCoordinator(logger),
		Carousels:  make(map[Picker]*carousel.Controller),
		Swipes:     make(map[Picker]*swipe.Tracker),
		activities: make(map[string]*activity.View),
	}
	s.Machine = wizard.NewMachine(wizard.AudioStopperFunc(func() {
		s.Playback.StopAll(context.Background())
	}))

	dispatch := func(msg wizard.Msg) {
		if err := s.Machine.Dispatch(msg); err != nil {
			logger.Warn("Rejected wizard update", zap.Error(err))
		}
	}

	s.addPicker(PickerType, func(o carousel.Option) {
		dispatch(wizard.SetMeditationType{Type: wizard.MeditationType(o.Value)})
	})
	s.addPicker(PickerVoice, func(o carousel.Option) {
		dispatch(wizard.SetVoice{VoiceID: o.Value})
	})
	s.addPicker(PickerBackground, func(o carousel.Option) {
		dispatch(wizard.SetBackground{Background: o.Value})
	})
	s.addPicker(PickerTempo, func(o carousel.Option) {
		tempo, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			logger.Warn("Invalid tempo option", zap.String("value", o.Value))
			return
		}
		dispatch(wizard.SetSpeechTempo{Tempo: tempo})
	})

	data := s.Machine.Data()
	types := make([]carousel.Option, 0, len(wizard.MeditationTypes))
	for _, t := range wizard.MeditationTypes {
		types = append(types, carousel.Option{Value: string(t)})
	}
	s.Carousels[PickerType].SetOptions(types)
	s.Carousels[PickerType].SyncFromExternalSelection(string(data.MeditationType))

	tempos := make([]carousel.Option, 0, len(wizard.Tempos))
	for _, t := range wizard.Tempos {
		tempos = append(tempos, carousel.Option{Value: TempoValue(t), Label: TempoValue(t) + "×"})
	}
	s.Carousels[PickerTempo].SetOptions(tempos)
	s.Carousels[PickerTempo].SyncFromExternalSelection(TempoValue(data.SpeechTempo))

	return s
}

func (s *Session) addPicker(p Picker, onSelect carousel.SelectFunc) {
	c := carousel.New(onSelect)
	s.Carousels[p] = c
	s.Swipes[p] = swipe.NewTracker(c)
}

// Close detaches every gesture tracker and silences previews.
func (s *Session) Close() {
	for _, t := range s.Swipes {
		t.Detach()
	}
	s.Playback.StopAll(context.Background())
}

func (s *Session) WizardMessageID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizardMessageID
}

func (s *Session) SetWizardMessageID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wizardMessageID = id
}

// TryBegin marks a long-running request as outstanding. It returns false while another one is.
func (s *Session) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) ActivityView(id string) (*activity.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.activities[id]
	return v, ok
}

func (s *Session) SetActivityView(id string, v *activity.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[id] = v
}

type Manager struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Get returns the user's session, creating one with wizard defaults on first use.
func (m *Manager) Get(userID int64) *Session {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s = NewSession(m.logger.With(zap.Int64("user_id", userID)))
	m.sessions[userID] = s
	return s
}

// Reset discards the user's session.
func (m *Manager) Reset(userID int64) *Session {
	m.mu.Lock()
	old := m.sessions[userID]
	s := NewSession(m.logger.With(zap.Int64("user_id", userID)))
	m.sessions[userID] = s
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	m.logger.Info("Session reset", zap.Int64("user_id", userID))
	return s
}
