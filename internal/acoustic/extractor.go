package acoustic

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// ErrNumeric reports a feature that came out NaN or infinite.
var ErrNumeric = errors.New("acoustic: non-finite feature")

// Config holds the short-time analysis parameters.
type Config struct {
	FrameLength int     // FFT size and ZCR frame, in samples
	HopLength   int     // samples between frame starts
	NumMels     int     // mel bands feeding the cepstrum
	NumMFCC     int     // cepstral coefficients kept
	RollPercent float64 // energy fraction for roll-off
	TopDB       float64 // dynamic range kept below the loudest mel cell
	AminPower   float64 // floor applied before log10
	ZeroEpsilon float64 // |x| at or below this counts as zero for ZCR
}

// DefaultConfig mirrors the usual short-time spectral analysis settings.
func DefaultConfig() Config {
	return Config{
		FrameLength: 2048,
		HopLength:   512,
		NumMels:     128,
		NumMFCC:     13,
		RollPercent: 0.85,
		TopDB:       80,
		AminPower:   1e-10,
		ZeroEpsilon: 1e-10,
	}
}

func (c Config) validate() error {
	if c.FrameLength < 4 || c.FrameLength%2 != 0 {
		return fmt.Errorf("acoustic: frame length %d must be even and >= 4", c.FrameLength)
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("acoustic: hop length %d must be positive", c.HopLength)
	}
	if c.NumMels <= 0 || c.NumMFCC <= 0 || c.NumMFCC > c.NumMels {
		return fmt.Errorf("acoustic: need 0 < mfcc (%d) <= mels (%d)", c.NumMFCC, c.NumMels)
	}
	if c.RollPercent <= 0 || c.RollPercent >= 1 {
		return fmt.Errorf("acoustic: roll percent %.3f outside (0,1)", c.RollPercent)
	}
	return nil
}

// Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	cfg    Config
	window []float64
	dct    [][]float64

	// filter bank for AnalysisSampleRate; other rates build one per call
	mel [][]float64
}

// NewExtractor precomputes the window, DCT and mel tables.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:    cfg,
		window: periodicHann(cfg.FrameLength),
		dct:    dctMatrix(cfg.NumMFCC, cfg.NumMels),
		mel:    melFilterBank(AnalysisSampleRate, cfg.FrameLength, cfg.NumMels),
	}, nil
}

// MustNewExtractor is for package-level defaults and tests.
func MustNewExtractor(cfg Config) *Extractor {
	e, err := NewExtractor(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns an absent vector when Compute fails.
func (e *Extractor) Extract(w Waveform) diagnosis.FeatureVector {
	f, err := e.Compute(w)
	if err != nil {
		return diagnosis.FeatureVector{}
	}
	return f
}

// Compute runs the full extraction and reports why it failed, if it did.
func (e *Extractor) Compute(w Waveform) (diagnosis.FeatureVector, error) {
	if err := w.Validate(); err != nil {
		return diagnosis.FeatureVector{}, err
	}

	bank := e.mel
	if w.SampleRate != AnalysisSampleRate {
		bank = melFilterBank(w.SampleRate, e.cfg.FrameLength, e.cfg.NumMels)
	}
	freqs := binFrequencies(w.SampleRate, e.cfg.FrameLength)

	spec := e.stft(w.Samples)
	nFrames := len(spec)

	centroids := make([]float64, nFrames)
	rolloffs := make([]float64, nFrames)
	melDB := make([][]float64, nFrames)
	power := make([]float64, len(freqs))
	maxDB := math.Inf(-1)

	for t, mags := range spec {
		centroids[t] = spectralCentroid(mags, freqs)
		rolloffs[t] = spectralRolloff(mags, freqs, e.cfg.RollPercent)

		for k, m := range mags {
			power[k] = m * m
		}
		row := make([]float64, len(bank))
		for m, filter := range bank {
			row[m] = 10 * math.Log10(math.Max(e.cfg.AminPower, floats.Dot(filter, power)))
		}
		if v := floats.Max(row); v > maxDB {
			maxDB = v
		}
		melDB[t] = row
	}

	floor := maxDB - e.cfg.TopDB
	coeffs := make([][]float64, e.cfg.NumMFCC)
	for k := range coeffs {
		coeffs[k] = make([]float64, nFrames)
	}
	for t, row := range melDB {
		for m, v := range row {
			if v < floor {
				row[m] = floor
			}
		}
		for k, basis := range e.dct {
			coeffs[k][t] = floats.Dot(basis, row)
		}
	}

	fv := diagnosis.FeatureVector{
		MFCCMean:             make([]float64, e.cfg.NumMFCC),
		MFCCStd:              make([]float64, e.cfg.NumMFCC),
		SpectralCentroidMean: stat.Mean(centroids, nil),
		SpectralRolloffMean:  stat.Mean(rolloffs, nil),
		ZeroCrossingRateMean: stat.Mean(e.zeroCrossingRates(w.Samples), nil),
		Duration:             w.Duration(),
		SampleRate:           w.SampleRate,
	}
	for k, series := range coeffs {
		fv.MFCCMean[k], fv.MFCCStd[k] = stat.PopMeanStdDev(series, nil)
	}

	if !finite(fv) {
		return diagnosis.FeatureVector{}, ErrNumeric
	}
	return fv, nil
}

// stft returns magnitude spectra of centered, zero-padded, Hann-windowed frames.
// The FFT plan holds scratch space, so it is created per call.
func (e *Extractor) stft(x []float64) [][]float64 {
	n, hop := e.cfg.FrameLength, e.cfg.HopLength
	pad := n / 2
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	frames := 1 + (len(padded)-n)/hop
	fft := fourier.NewFFT(n)
	buf := make([]float64, n)
	coeffs := make([]complex128, n/2+1)
	out := make([][]float64, frames)
	for t := 0; t < frames; t++ {
		start := t * hop
		for i := 0; i < n; i++ {
			buf[i] = padded[start+i] * e.window[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		mags := make([]float64, len(coeffs))
		for k, c := range coeffs {
			mags[k] = cmplx.Abs(c)
		}
		out[t] = mags
	}
	return out
}

// zeroCrossingRates frames the edge-padded signal and returns the fraction of
// sign changes per frame.
func (e *Extractor) zeroCrossingRates(x []float64) []float64 {
	n, hop := e.cfg.FrameLength, e.cfg.HopLength
	pad := n / 2
	padded := make([]float64, len(x)+2*pad)
	for i := range padded {
		j := i - pad
		switch {
		case j < 0:
			j = 0
		case j >= len(x):
			j = len(x) - 1
		}
		padded[i] = x[j]
	}

	negative := make([]bool, len(padded))
	for i, v := range padded {
		negative[i] = math.Abs(v) > e.cfg.ZeroEpsilon && v < 0
	}

	frames := 1 + (len(padded)-n)/hop
	out := make([]float64, frames)
	for t := range out {
		start := t * hop
		crossings := 0
		for i := start + 1; i < start+n; i++ {
			if negative[i] != negative[i-1] {
				crossings++
			}
		}
		out[t] = float64(crossings) / float64(n)
	}
	return out
}

// spectralCentroid is 0 for a frame without energy.
func spectralCentroid(mags, freqs []float64) float64 {
	total := floats.Sum(mags)
	if total <= math.SmallestNonzeroFloat64 {
		return 0
	}
	return floats.Dot(mags, freqs) / total
}

// spectralRolloff is the lowest bin frequency below which pct of the magnitude sits.
func spectralRolloff(mags, freqs []float64, pct float64) float64 {
	threshold := pct * floats.Sum(mags)
	var cum float64
	for k, m := range mags {
		cum += m
		if cum >= threshold {
			return freqs[k]
		}
	}
	return freqs[len(freqs)-1]
}

func finite(f diagnosis.FeatureVector) bool {
	check := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for i := range f.MFCCMean {
		if !check(f.MFCCMean[i]) || !check(f.MFCCStd[i]) {
			return false
		}
	}
	return check(f.SpectralCentroidMean) && check(f.SpectralRolloffMean) &&
		check(f.ZeroCrossingRateMean) && check(f.Duration)
}
