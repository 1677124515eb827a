package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

func sample() *diagnosis.Diagnosis {
	return &diagnosis.Diagnosis{
		ID:         "abc",
		DamageType: diagnosis.CategoryBrakeSqueal,
		Confidence: 0.85,
		Features: diagnosis.FeatureVector{
			MFCCMean: make([]float64, 13), MFCCStd: make([]float64, 13),
			SpectralCentroidMean: 2500, SpectralRolloffMean: 3000,
			ZeroCrossingRateMean: 0.3, Duration: 1.5, SampleRate: 16000,
		},
	}
}

func TestLocalAdviceMatchesSchema(t *testing.T) {
	raw, err := LocalAdvisor{}.Advise(context.Background(), sample())
	require.NoError(t, err)

	a, err := ParseAdvice(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc", a.AnalysisID)
	assert.Equal(t, "high", a.Urgency)
	assert.False(t, a.SafeToDrive)
	assert.Len(t, a.Observations, 4)
}

func TestLocalAdviceFailedAnalysis(t *testing.T) {
	a, err := ParseAdvice(LocalAdvice(&diagnosis.Diagnosis{ID: "x", DamageType: diagnosis.CategoryAnalysisFailed}))
	require.NoError(t, err)
	assert.Equal(t, "unknown", a.Urgency)
	require.Len(t, a.Observations, 1)
	assert.Equal(t, "No features", a.Observations[0].Title)
}

func TestLocalAdviceCoversEveryCategory(t *testing.T) {
	cats := append([]diagnosis.Category{diagnosis.CategoryAnalysisFailed}, diagnosis.ClassifierCategories...)
	for _, c := range cats {
		_, ok := profiles[c]
		assert.True(t, ok, c)
	}
}

func TestParseAdvice(t *testing.T) {
	_, err := ParseAdvice("```json\n{\"urgency\":\"low\",\"observations\":[]}\n```")
	assert.NoError(t, err)

	_, err = ParseAdvice(`{"urgency":"catastrophic"}`)
	assert.ErrorContains(t, err, "invalid urgency")

	_, err = ParseAdvice("not json")
	assert.Error(t, err)
}

func TestUserPromptCarriesFeatures(t *testing.T) {
	p := GetUserPrompt(sample())
	assert.Contains(t, p, `"damage_type":"brake_squeal"`)
	assert.Contains(t, p, `"spectral_centroid_mean":2500`)
}
