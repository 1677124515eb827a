// Package testutil builds audio fixtures for tests.
package testutil

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SineWAV encodes a 16-bit PCM sine tone and returns the file bytes.
func SineWAV(tb testing.TB, freq, seconds float64, rate, channels int) []byte {
	tb.Helper()
	frames := int(seconds * float64(rate))
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(math.Round(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))))
		for c := 0; c < channels; c++ {
			data[i*channels+c] = v
		}
	}
	return encode(tb, data, rate, channels)
}

// NoiseWAV encodes near full-scale uniform white noise from a fixed seed.
func NoiseWAV(tb testing.TB, seed int64, seconds float64, rate int) []byte {
	tb.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]int, int(seconds*float64(rate)))
	for i := range data {
		data[i] = int(math.Round(0.99 * 32767 * (2*rng.Float64() - 1)))
	}
	return encode(tb, data, rate, 1)
}

// SilentWAV encodes an all-zero recording.
func SilentWAV(tb testing.TB, seconds float64, rate int) []byte {
	tb.Helper()
	return encode(tb, make([]int, int(seconds*float64(rate))), rate, 1)
}

func encode(tb testing.TB, data []int, rate, channels int) []byte {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create fixture: %v", err)
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("close fixture: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read fixture: %v", err)
	}
	return b
}
