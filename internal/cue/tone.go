package cue

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is the PCM rate of generated tones.
const SampleRate = 44100

// SineWave returns n samples of a full-scale sine at frequency Hz sampled at
// rate, offset so the wave spans 0 to full scale.
func SineWave(n, rate, frequency int) []int16 {
	if n <= 0 || rate <= 0 {
		return nil
	}

	data := make([]int16, n)
	step := 1.0 / float64(rate)
	freq := float64(frequency)
	t := 0.0
	for i := range data {
		factor := 0.5 * (math.Sin(2*math.Pi*freq*t) + 1)
		v := 32768 * factor
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		data[i] = int16(v)
		t += step
	}
	return data
}

// ToneSamples returns the sample count of a tone of the given length.
func ToneSamples(seconds float64) int {
	return int(SampleRate * seconds)
}

// WriteWAV writes mono 16-bit PCM samples as a RIFF WAVE file. The encoder
// seeks back to patch the chunk sizes on close.
func WriteWAV(w io.WriteSeeker, samples []int16, rate int) error {
	enc := wav.NewEncoder(w, rate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	return enc.Close()
}
