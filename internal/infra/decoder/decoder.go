package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/h2non/filetype"

	"github.com/bryanwahyu/enginesound/internal/acoustic"
)

var (
	ErrEmptyInput      = errors.New("decoder: empty input")
	ErrUnrecognized    = errors.New("decoder: unrecognized audio container")
	ErrUnsupportedWAV  = errors.New("decoder: unsupported wav encoding")
	ErrNoSamples       = errors.New("decoder: recording has no samples")
	ErrNoExternalCodec = errors.New("decoder: format needs ffmpeg which is not configured")
	ErrTooLong         = errors.New("decoder: recording exceeds the maximum duration")
	ErrSampleRate      = errors.New("decoder: sample rate out of range")
)

const (
	// MinSourceRate is the lowest header sample rate accepted for WAV input.
	MinSourceRate = 4000
	// DefaultMaxSeconds bounds the decoded duration when no limit is configured.
	DefaultMaxSeconds = 600.0

	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// errExternalOnly sends a WAV to the external codec without trying it in process.
var errExternalOnly = errors.New("decoder: wav needs external codec")

// External converts non-WAV containers. Implemented by ffmpeg.Runner.
type External interface {
	DecodeMono(ctx context.Context, data []byte, ext string, sampleRate int, maxSeconds float64) ([]float64, error)
}

// Decoder turns recording bytes into a mono waveform at a fixed rate.
type Decoder struct {
	external   External
	sampleRate int
	maxSeconds float64
}

// Option tunes a Decoder.
type Option func(*Decoder)

// WithMaxSeconds caps the decoded duration. Values <= 0 keep DefaultMaxSeconds.
func WithMaxSeconds(s float64) Option {
	return func(d *Decoder) {
		if s > 0 {
			d.maxSeconds = s
		}
	}
}

// New builds a decoder. external may be nil, in which case only WAV is accepted.
func New(external External, sampleRate int, opts ...Option) *Decoder {
	if sampleRate <= 0 {
		sampleRate = acoustic.AnalysisSampleRate
	}
	d := &Decoder{external: external, sampleRate: sampleRate, maxSeconds: DefaultMaxSeconds}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads WAV in-process and falls back to the external codec for everything else.
func (d *Decoder) Decode(ctx context.Context, data []byte) (acoustic.Waveform, error) {
	if len(data) == 0 {
		return acoustic.Waveform{}, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return acoustic.Waveform{}, err
	}

	if isRIFFWave(data) {
		w, err := d.decodeWAV(data)
		if err == nil {
			return w, nil
		}
		if d.external == nil || !fallsBack(err) {
			return acoustic.Waveform{}, err
		}
		// float, extensible or exotic WAV; let ffmpeg try
	}

	kind, _ := filetype.Match(data)
	if !filetype.IsAudio(data) && !filetype.IsVideo(data) {
		return acoustic.Waveform{}, ErrUnrecognized
	}
	if d.external == nil {
		return acoustic.Waveform{}, ErrNoExternalCodec
	}

	samples, err := d.external.DecodeMono(ctx, data, kind.Extension, d.sampleRate, d.maxSeconds)
	if err != nil {
		return acoustic.Waveform{}, err
	}
	if len(samples) == 0 {
		return acoustic.Waveform{}, ErrNoSamples
	}
	if float64(len(samples)) > d.maxSeconds*float64(d.sampleRate) {
		return acoustic.Waveform{}, fmt.Errorf("%w: limit %.0fs", ErrTooLong, d.maxSeconds)
	}
	return acoustic.Waveform{Samples: samples, SampleRate: d.sampleRate}, nil
}

func (d *Decoder) decodeWAV(data []byte) (acoustic.Waveform, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return acoustic.Waveform{}, fmt.Errorf("%w: invalid header", ErrUnsupportedWAV)
	}
	switch dec.WavAudioFormat {
	case formatPCM:
	case formatExtensible:
		// the subformat may be float; only ffmpeg reads it reliably
		if d.external != nil {
			return acoustic.Waveform{}, errExternalOnly
		}
	default:
		return acoustic.Waveform{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, dec.WavAudioFormat)
	}

	rate := int(dec.SampleRate)
	if rate < MinSourceRate {
		return acoustic.Waveform{}, fmt.Errorf("%w: %w: %d Hz below %d Hz", ErrUnsupportedWAV, ErrSampleRate, rate, MinSourceRate)
	}
	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return acoustic.Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return acoustic.Waveform{}, ErrNoSamples
	}

	if seconds := float64(len(buf.Data)/channels) / float64(rate); seconds > d.maxSeconds {
		return acoustic.Waveform{}, fmt.Errorf("%w: %w: %.0fs over %.0fs", ErrUnsupportedWAV, ErrTooLong, seconds, d.maxSeconds)
	}

	interleaved := normalizePCM(buf.Data, int(dec.BitDepth))
	mono := acoustic.Downmix(interleaved, channels)
	if len(mono) == 0 {
		return acoustic.Waveform{}, ErrNoSamples
	}
	return acoustic.Waveform{
		Samples:    acoustic.Resample(mono, rate, d.sampleRate),
		SampleRate: d.sampleRate,
	}, nil
}

// fallsBack reports whether an in-process WAV failure may be retried externally.
// Limit violations never are.
func fallsBack(err error) bool {
	if errors.Is(err, errExternalOnly) {
		return true
	}
	return !errors.Is(err, ErrNoSamples) && !errors.Is(err, ErrTooLong) && !errors.Is(err, ErrSampleRate)
}

// normalizePCM scales integer samples into [-1, 1). 8-bit WAV is unsigned.
func normalizePCM(data []int, bitDepth int) []float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << uint(bitDepth-1))
	out := make([]float64, len(data))
	for i, v := range data {
		if bitDepth == 8 {
			v -= 128
		}
		out[i] = float64(v) / scale
	}
	return out
}

func isRIFFWave(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}
