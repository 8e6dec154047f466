package audio

import (
	"math"
	"time"
)

const (
	DefaultBackgroundGain = 0.25
	FadeDuration          = time.Second
	TailDuration          = 2 * time.Second
)

type MixOptions struct {
	BackgroundGain float32
	Fade           time.Duration
	Tail           time.Duration
}

func DefaultMixOptions() MixOptions {
	return MixOptions{
		BackgroundGain: DefaultBackgroundGain,
		Fade:           FadeDuration,
		Tail:           TailDuration,
	}
}

func samplesFor(d time.Duration) int {
	return int(math.Round(d.Seconds() * SampleRate))
}

// Mix lays background under speech. The background loops to cover the speech
// plus a tail, fades in and out, and the sum is clipped to [-1, 1].
func Mix(speech, background []float32, opts MixOptions) []float32 {
	if len(background) == 0 {
		return append([]float32(nil), speech...)
	}

	tail := samplesFor(opts.Tail)
	total := len(speech) + tail
	fade := samplesFor(opts.Fade)
	if fade*2 > total {
		fade = total / 2
	}

	out := make([]float32, total)
	for i := range out {
		bg := background[i%len(background)] * opts.BackgroundGain * envelope(i, total, fade)
		var v float32
		if i < len(speech) {
			v = speech[i]
		}
		out[i] = clip(v + bg)
	}
	return out
}

func envelope(i, total, fade int) float32 {
	if fade == 0 {
		return 1
	}
	switch {
	case i < fade:
		return float32(i) / float32(fade)
	case i >= total-fade:
		return float32(total-i) / float32(fade)
	default:
		return 1
	}
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
