package acoustic

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

func sine(freq, seconds, amp float64, rate int) Waveform {
	n := int(seconds * float64(rate))
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return Waveform{Samples: s, SampleRate: rate}
}

func TestExtractSineShape(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())

	fv, err := ex.Compute(sine(800, 3, 0.5, AnalysisSampleRate))
	require.NoError(t, err)

	assert.Len(t, fv.MFCCMean, 13)
	assert.Len(t, fv.MFCCStd, 13)
	assert.InDelta(t, 3.0, fv.Duration, 1e-9)
	assert.Equal(t, AnalysisSampleRate, fv.SampleRate)

	assert.Greater(t, fv.SpectralCentroidMean, 700.0)
	assert.LessOrEqual(t, fv.SpectralCentroidMean, 1000.0)
	assert.Greater(t, fv.SpectralRolloffMean, 700.0)
	assert.Less(t, fv.SpectralRolloffMean, 1500.0)
	assert.InDelta(t, 0.1, fv.ZeroCrossingRateMean, 0.01)
	for _, sd := range fv.MFCCStd {
		assert.GreaterOrEqual(t, sd, 0.0)
	}

	assert.Equal(t, diagnosis.CategoryExhaustLeak, diagnosis.Classify(fv).Category)
}

func TestExtractHighToneHasHighCentroid(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())
	fv := ex.Extract(sine(3000, 1, 0.5, AnalysisSampleRate))
	require.False(t, fv.Empty())
	assert.Greater(t, fv.SpectralCentroidMean, 2000.0)
}

func TestExtractWhiteNoiseIsBrakeSqueal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := make([]float64, 2*AnalysisSampleRate)
	for i := range s {
		s[i] = 2*rng.Float64() - 1
	}

	fv := MustNewExtractor(DefaultConfig()).Extract(Waveform{Samples: s, SampleRate: AnalysisSampleRate})
	require.False(t, fv.Empty())
	assert.Greater(t, fv.SpectralCentroidMean, 2000.0)
	assert.Greater(t, fv.MFCCMean[0]+fv.MFCCMean[1]+fv.MFCCMean[2], 0.0)
	assert.Equal(t, diagnosis.DamageVerdict{Category: diagnosis.CategoryBrakeSqueal, Confidence: 0.85}, diagnosis.Classify(fv))
}

func TestExtractDeterministic(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())
	w := sine(1234, 1.5, 0.3, AnalysisSampleRate)

	first := ex.Extract(w)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, ex.Extract(w))
	}
}

func TestExtractConcurrentCallsAgree(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())
	w := sine(440, 1, 0.5, AnalysisSampleRate)
	want := ex.Extract(w)

	var wg sync.WaitGroup
	results := make([]diagnosis.FeatureVector, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ex.Extract(w)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestExtractSilenceIsLowCentroid(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())
	fv, err := ex.Compute(Waveform{Samples: make([]float64, AnalysisSampleRate), SampleRate: AnalysisSampleRate})
	require.NoError(t, err)

	assert.Equal(t, 0.0, fv.SpectralCentroidMean)
	assert.Equal(t, 0.0, fv.ZeroCrossingRateMean)
	assert.Equal(t, diagnosis.CategoryNormalOperation, diagnosis.Classify(fv).Category)
}

func TestExtractDegenerateInputIsAbsent(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())

	cases := map[string]Waveform{
		"empty":     {SampleRate: AnalysisSampleRate},
		"no rate":   {Samples: []float64{0.1, 0.2}},
		"nan":       {Samples: []float64{0.1, math.NaN()}, SampleRate: AnalysisSampleRate},
		"infinity":  {Samples: []float64{math.Inf(1)}, SampleRate: AnalysisSampleRate},
		"overflows": {Samples: []float64{1e300, -1e300, 1e300}, SampleRate: AnalysisSampleRate},
	}
	for name, w := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ex.Compute(w)
			assert.Error(t, err)
			assert.True(t, ex.Extract(w).Empty())
		})
	}
}

func TestExtractShortInput(t *testing.T) {
	ex := MustNewExtractor(DefaultConfig())
	fv := ex.Extract(sine(800, 0.01, 0.5, AnalysisSampleRate))
	require.False(t, fv.Empty())
	assert.InDelta(t, 0.01, fv.Duration, 1e-9)
}

func TestNewExtractorRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumMFCC = cfg.NumMels + 1
	_, err := NewExtractor(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.HopLength = 0
	_, err = NewExtractor(cfg)
	assert.Error(t, err)
}
