package sqlcodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

func TestRowKeepsEveryField(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	in := &diagnosis.Diagnosis{
		ID: "a", Timestamp: ts, FileName: "x.wav", FileSize: 10, ContentType: "audio/wav",
		DamageType: diagnosis.CategoryBeltSqueal, Confidence: 0.78,
		Features: diagnosis.FeatureVector{
			MFCCMean: []float64{1, -2}, MFCCStd: []float64{0.5, 0.1},
			SpectralCentroidMean: 2100, SpectralRolloffMean: 3000, ZeroCrossingRateMean: 0.2,
			Duration: 1, SampleRate: 16000,
		},
		Suggestions: diagnosis.SuggestionBundle{Temporary: []string{"t"}, Permanent: []string{"p"}},
		AudioURL:    "u", AudioKey: "k", DurationMS: 12, Metadata: `{"a":1}`,
	}
	row, err := FromDiagnosis(in)
	require.NoError(t, err)
	out, err := row.Diagnosis(ts)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRowEmptyFeatures(t *testing.T) {
	row, err := FromDiagnosis(&diagnosis.Diagnosis{ID: "b", DamageType: diagnosis.CategoryAnalysisFailed})
	require.NoError(t, err)
	assert.Equal(t, "{}", row.Features)
	assert.Equal(t, "-", row.FileName)

	out, err := row.Diagnosis(time.Now())
	require.NoError(t, err)
	assert.True(t, out.Features.Empty())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "{}", JSONOrEmpty(" "))
	assert.Equal(t, `{"raw":"oops"}`, JSONOrEmpty("oops"))
	assert.Equal(t, `[1]`, JSONOrEmpty(`[1]`))
	assert.Equal(t, 3, TotalPages(41, 20))
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, []string{"CREATE A", "CREATE B"}, Statements("CREATE A;\n\nCREATE B;\n"))

	sum := SummaryFrom(map[diagnosis.Category]int{"a": 2, "b": 3}, 7)
	assert.Equal(t, 5, sum.Total)
}
