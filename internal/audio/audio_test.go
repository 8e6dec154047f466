package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16ToFloat(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80, 0xff}
	got := PCM16ToFloat(raw)
	require.Len(t, got, 3)
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(0.5), got[1])
	assert.Equal(t, float32(-1), got[2])
}

func TestEncodeDecodeWAV(t *testing.T) {
	samples := make([]float32, 480)
	for i := range samples {
		samples[i] = float32(i%10)/20 - 0.25
	}

	data, err := EncodeWAV(samples)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))

	decoded, err := DecodeWAV(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], decoded[i], 1e-3, "sample %d", i)
	}
}

func TestDecodeWAV_Empty(t *testing.T) {
	_, err := DecodeWAV(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestMix_LoopsBackgroundAndAddsTail(t *testing.T) {
	speech := []float32{0.5, 0.5, 0.5, 0.5}
	background := []float32{1, -1}
	opts := MixOptions{BackgroundGain: 0.5, Tail: 2 * time.Second / SampleRate}

	out := Mix(speech, background, opts)
	assert.Equal(t, []float32{1, 0, 1, 0, 0.5, -0.5}, out)
}

func TestMix_ClipsAndFades(t *testing.T) {
	speech := []float32{1, 1, 1, 1}
	background := []float32{1}
	opts := MixOptions{BackgroundGain: 1, Fade: 2 * time.Second / SampleRate}

	out := Mix(speech, background, opts)
	assert.Equal(t, []float32{1, 1, 1, 1}, out)

	quiet := Mix([]float32{0, 0, 0, 0}, background, opts)
	assert.Equal(t, []float32{0, 0.5, 1, 0.5}, quiet)
}

func TestMix_NoBackground(t *testing.T) {
	speech := []float32{0.1, 0.2}
	out := Mix(speech, nil, DefaultMixOptions())
	assert.Equal(t, speech, out)
	out[0] = 9
	assert.Equal(t, float32(0.1), speech[0])
}
