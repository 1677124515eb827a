package acoustic

import (
	"errors"
	"math"
)

// AnalysisSampleRate is the rate every waveform is resampled to before extraction.
const AnalysisSampleRate = 16000

var (
	ErrEmptyWaveform  = errors.New("acoustic: empty waveform")
	ErrBadSampleRate  = errors.New("acoustic: sample rate must be positive")
	ErrNonFiniteInput = errors.New("acoustic: waveform contains NaN or Inf")
)

// Waveform is a mono sequence of normalized samples.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Validate checks the invariants the extractor depends on.
func (w Waveform) Validate() error {
	if w.SampleRate <= 0 {
		return ErrBadSampleRate
	}
	if len(w.Samples) == 0 {
		return ErrEmptyWaveform
	}
	for _, v := range w.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteInput
		}
	}
	return nil
}

// Downmix averages interleaved channels into one.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	n := len(interleaved) / channels
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for c := 0; c < channels; c++ {
			s += interleaved[i*channels+c]
		}
		out[i] = s / float64(channels)
	}
	return out
}

// Resample converts samples between rates with linear interpolation. When
// downsampling, a moving-average pre-filter sized to the rate ratio limits aliasing.
func Resample(samples []float64, from, to int) []float64 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples
	}
	src := samples
	if to < from {
		src = boxFilter(samples, int(math.Ceil(float64(from)/float64(to))))
	}
	ratio := float64(from) / float64(to)
	n := int(math.Floor(float64(len(src)) / ratio))
	if n == 0 {
		n = 1
	}
	out := make([]float64, n)
	last := len(src) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = src[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = src[j]*(1-frac) + src[j+1]*frac
	}
	return out
}

func boxFilter(x []float64, width int) []float64 {
	if width <= 1 {
		return x
	}
	out := make([]float64, len(x))
	half := width / 2
	var acc float64
	count := 0
	lo, hi := 0, -1
	for i := range x {
		for hi < i+half && hi+1 < len(x) {
			hi++
			acc += x[hi]
			count++
		}
		for lo < i-half {
			acc -= x[lo]
			lo++
			count--
		}
		out[i] = acc / float64(count)
	}
	return out
}
