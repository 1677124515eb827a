package diagnosis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableCoversKnownCategories(t *testing.T) {
	table := MustDefaultSuggestionTable()
	fallback := FallbackSuggestions()
	for _, c := range KnownCategories {
		b := table.Resolve(c)
		assert.NotEmpty(t, b.Temporary, c)
		assert.NotEmpty(t, b.Permanent, c)
		assert.NotEqual(t, fallback, b, c)
	}
}

func TestResolveFallsBack(t *testing.T) {
	table := MustDefaultSuggestionTable()
	want := SuggestionBundle{
		Temporary: []string{"Consult a professional mechanic"},
		Permanent: []string{"Complete diagnostic by certified technician"},
	}
	for _, c := range []Category{CategoryUnknown, CategoryAnalysisFailed, "flux_capacitor"} {
		assert.Equal(t, want, table.Resolve(c))
	}

	var nilTable *SuggestionTable
	assert.Equal(t, want, nilTable.Resolve(CategoryBrakeSqueal))
}

func TestResolveReturnsCopies(t *testing.T) {
	table := MustDefaultSuggestionTable()
	b := table.Resolve(CategoryBeltSqueal)
	b.Temporary[0] = "mutated"
	assert.Equal(t, "Check belt tension", table.Resolve(CategoryBeltSqueal).Temporary[0])
}

func TestNewSuggestionTableValidates(t *testing.T) {
	entries := DefaultSuggestions()
	delete(entries, CategoryExhaustLeak)
	_, err := NewSuggestionTable(entries)
	assert.ErrorContains(t, err, "missing category")

	entries = DefaultSuggestions()
	entries[CategoryEngineKnock] = SuggestionBundle{Temporary: []string{"x"}}
	_, err = NewSuggestionTable(entries)
	assert.ErrorContains(t, err, "needs temporary and permanent")

	entries = DefaultSuggestions()
	entries[CategoryUnknown] = FallbackSuggestions()
	_, err = NewSuggestionTable(entries)
	assert.ErrorContains(t, err, "unexpected category")
}

func TestFeatureVectorJSON(t *testing.T) {
	b, err := json.Marshal(FeatureVector{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	in := FeatureVector{MFCCMean: []float64{1}, MFCCStd: []float64{2}, SpectralCentroidMean: 3, SampleRate: 16000}
	b, err = json.Marshal(in)
	require.NoError(t, err)

	var out FeatureVector
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("analysis_failed")
	assert.True(t, ok)
	assert.Equal(t, CategoryAnalysisFailed, c)

	_, ok = ParseCategory("nope")
	assert.False(t, ok)
}
