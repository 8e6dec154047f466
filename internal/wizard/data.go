package wizard

import "slices"

type MeditationType string

const (
	TypeSleep       MeditationType = "sleep"
	TypeStress      MeditationType = "stress"
	TypeFocus       MeditationType = "focus"
	TypeAnxiety     MeditationType = "anxiety"
	TypeEnergy      MeditationType = "energy"
	TypeMindfulness MeditationType = "mindfulness"
	TypeCompassion  MeditationType = "compassion"
	TypeWalking     MeditationType = "walking"
	TypeBreathing   MeditationType = "breathing"
	TypeMorning     MeditationType = "morning"
)

// MeditationTypes is the closed set of types in display order.
var MeditationTypes = []MeditationType{
	TypeSleep,
	TypeStress,
	TypeFocus,
	TypeAnxiety,
	TypeEnergy,
	TypeMindfulness,
	TypeCompassion,
	TypeWalking,
	TypeBreathing,
	TypeMorning,
}

func (t MeditationType) Valid() bool {
	return slices.Contains(MeditationTypes, t)
}

type GenderFilter string

const (
	GenderAll    GenderFilter = "all"
	GenderMale   GenderFilter = "male"
	GenderFemale GenderFilter = "female"
)

func (g GenderFilter) Valid() bool {
	return g == GenderAll || g == GenderMale || g == GenderFemale
}

const (
	BackgroundNone   = "none"
	BackgroundCustom = "custom"
	// DefaultBackground is the system track selected for a new wizard.
	DefaultBackground = "ocean"
	// SavedPrefix marks a background uploaded by the user: "saved-<id>".
	SavedPrefix = "saved-"
)

// Tempos are the only speech tempos the TTS request may carry.
var Tempos = []float64{0.75, 0.80, 0.85, 0.90, 0.95, 1.00, 1.05, 1.10}

const DefaultTempo = 1.00

func ValidTempo(t float64) bool {
	return slices.Contains(Tempos, t)
}

const (
	MinWords = 50
	MaxWords = 10000
)

// Data is the session-local state the wizard collects. It lives in memory only.
type Data struct {
	MeditationType     MeditationType
	Text               string
	VoiceID            string
	Background         string
	UseBackgroundMusic bool
	SpeechTempo        float64
	GenderFilter       GenderFilter
}

func NewDefaultData() Data {
	return Data{
		MeditationType:     TypeSleep,
		Background:         DefaultBackground,
		UseBackgroundMusic: true,
		SpeechTempo:        DefaultTempo,
		GenderFilter:       GenderAll,
	}
}

// EffectiveBackground returns the background to mix, or BackgroundNone when music is off.
func (d Data) EffectiveBackground() string {
	if !d.UseBackgroundMusic || d.Background == "" {
		return BackgroundNone
	}
	return d.Background
}
