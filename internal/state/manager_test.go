package state

import (
	"testing"

	"meditation-bot/internal/carousel"
	"meditation-bot/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSession_CarouselsFollowDefaults(t *testing.T) {
	s := NewSession(zap.NewNop())

	cur, ok := s.Carousels[PickerType].Current()
	require.True(t, ok)
	assert.Equal(t, string(wizard.TypeSleep), cur.Value)

	cur, ok = s.Carousels[PickerTempo].Current()
	require.True(t, ok)
	assert.Equal(t, "1.00", cur.Value)
}

func TestSession_SwipeKeysUpdateWizardData(t *testing.T) {
	s := NewSession(zap.NewNop())

	s.Swipes[PickerType].HandleKey("ArrowRight")
	assert.Equal(t, wizard.TypeStress, s.Machine.Data().MeditationType)

	s.Swipes[PickerTempo].HandleKey("ArrowLeft")
	assert.Equal(t, 0.95, s.Machine.Data().SpeechTempo)
}

func TestSession_BackgroundSentinelDoesNotSelect(t *testing.T) {
	s := NewSession(zap.NewNop())
	bg := s.Carousels[PickerBackground]
	bg.SetOptions([]carousel.Option{{Value: "ocean"}, {Value: UploadOption, Sentinel: true}})

	bg.Next()
	assert.Equal(t, "ocean", s.Machine.Data().Background)
	cur, _ := bg.Current()
	assert.True(t, cur.Sentinel)
}

func TestSession_TryBegin(t *testing.T) {
	s := NewSession(zap.NewNop())
	assert.True(t, s.TryBegin())
	assert.False(t, s.TryBegin())
	s.End()
	assert.True(t, s.TryBegin())
}

func TestManager_GetAndReset(t *testing.T) {
	m := NewManager(zap.NewNop())
	s := m.Get(1)
	assert.Same(t, s, m.Get(1))

	s.Machine.Next()
	fresh := m.Reset(1)
	assert.NotSame(t, s, fresh)
	assert.Equal(t, wizard.StepType, m.Get(1).Machine.Step())
}

func TestPickerForStep(t *testing.T) {
	_, ok := PickerForStep(wizard.StepText)
	assert.False(t, ok)
	p, ok := PickerForStep(wizard.StepBackground)
	require.True(t, ok)
	assert.Equal(t, PickerBackground, p)
}
