package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMeditationType = errors.New("unknown meditation type")
	ErrInvalidTempo          = errors.New("speech tempo is not one of the supported values")
	ErrUnknownGender         = errors.New("unknown gender filter")
)

// Msg is a single field update emitted by a step.
type Msg interface {
	apply(d *Data) error
}

type SetMeditationType struct{ Type MeditationType }

type SetText struct{ Text string }

type SetVoice struct{ VoiceID string }

type SetBackground struct{ Background string }

type SetUseBackgroundMusic struct{ Enabled bool }

type SetSpeechTempo struct{ Tempo float64 }

type SetGenderFilter struct{ Filter GenderFilter }

type Reset struct{}

func (m SetMeditationType) apply(d *Data) error {
	if !m.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMeditationType, m.Type)
	}
	d.MeditationType = m.Type
	return nil
}

func (m SetText) apply(d *Data) error {
	d.Text = m.Text
	return nil
}

func (m SetVoice) apply(d *Data) error {
	d.VoiceID = m.VoiceID
	return nil
}

func (m SetBackground) apply(d *Data) error {
	d.Background = m.Background
	return nil
}

func (m SetUseBackgroundMusic) apply(d *Data) error {
	d.UseBackgroundMusic = m.Enabled
	return nil
}

func (m SetSpeechTempo) apply(d *Data) error {
	if !ValidTempo(m.Tempo) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, m.Tempo)
	}
	d.SpeechTempo = m.Tempo
	return nil
}

func (m SetGenderFilter) apply(d *Data) error {
	if !m.Filter.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGender, m.Filter)
	}
	d.GenderFilter = m.Filter
	return nil
}

func (Reset) apply(d *Data) error {
	*d = NewDefaultData()
	return nil
}

// Reduce applies msg to a copy of data. On error the original data is returned.
func Reduce(data Data, msg Msg) (Data, error) {
	next := data
	if err := msg.apply(&next); err != nil {
		return data, err
	}
	return next, nil
}
