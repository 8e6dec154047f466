package wizard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StepType = iota + 1
	StepText
	StepVoice
	StepBackground
	StepReview
)

const (
	FirstStep = StepType
	LastStep  = StepReview
)

var ErrStepInvalid = errors.New("wizard step is not valid")

type StepError struct {
	Step int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, ErrStepInvalid)
}

func (e *StepError) Unwrap() error {
	return ErrStepInvalid
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// IsStepValid reports whether data satisfies the requirements of step.
func IsStepValid(step int, data Data) bool {
	switch step {
	case StepType:
		return data.MeditationType != ""
	case StepText:
		if strings.TrimSpace(data.Text) == "" {
			return false
		}
		n := WordCount(data.Text)
		return n >= MinWords && n <= MaxWords
	case StepVoice:
		return data.VoiceID != ""
	case StepBackground:
		return !data.UseBackgroundMusic || data.Background != ""
	case StepReview:
		return true
	default:
		return false
	}
}

// ValidateAll returns a *StepError for the first step that does not hold.
func ValidateAll(data Data) error {
	for step := FirstStep; step <= LastStep; step++ {
		if !IsStepValid(step, data) {
			return &StepError{Step: step}
		}
	}
	return nil
}
