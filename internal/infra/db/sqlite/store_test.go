package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/enginesound/internal/domain/advice"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/domain/failures"
)

func openTestDB(t *testing.T) (*DiagnosisRepository, *FailureRepository, *AdviceRepository) {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDiagnosisRepository(db), NewFailureRepository(db), NewAdviceRepository(db)
}

func record(id string, c diagnosis.Category, ts time.Time) *diagnosis.Diagnosis {
	return &diagnosis.Diagnosis{
		ID:         diagnosis.DiagnosisID(id),
		Timestamp:  ts,
		FileName:   id + ".wav",
		FileSize:   1024,
		DamageType: c,
		Confidence: 0.5,
		Features: diagnosis.FeatureVector{
			MFCCMean: []float64{-1, 2, 3}, MFCCStd: []float64{0.1, 0.2, 0.3},
			SpectralCentroidMean: 900, SpectralRolloffMean: 1200, ZeroCrossingRateMean: 0.1,
			Duration: 3, SampleRate: 16000,
		},
		Suggestions: diagnosis.MustDefaultSuggestionTable().Resolve(c),
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDiagnosisRoundTrip(t *testing.T) {
	repo, _, _ := openTestDB(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)
	in := record("one", diagnosis.CategoryExhaustLeak, ts)

	require.NoError(t, repo.Save(ctx, in))
	got, err := repo.Get(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, diagnosis.ErrNotFound)
}

func TestFailedRecordKeepsEmptyFeatures(t *testing.T) {
	repo, _, _ := openTestDB(t)
	ctx := context.Background()
	in := &diagnosis.Diagnosis{
		ID: "bad", Timestamp: time.Now().UTC(), FileName: "bad.mp3",
		DamageType: diagnosis.CategoryAnalysisFailed, Suggestions: diagnosis.FallbackSuggestions(),
	}
	require.NoError(t, repo.Save(ctx, in))
	got, err := repo.Get(ctx, "bad")
	require.NoError(t, err)
	assert.True(t, got.Features.Empty())
	assert.Equal(t, diagnosis.FallbackSuggestions(), got.Suggestions)
}

func TestLatestPaginateSummary(t *testing.T) {
	repo, _, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, record("old", diagnosis.CategoryBrakeSqueal, now.AddDate(0, 0, -30))))
	require.NoError(t, repo.Save(ctx, record("a", diagnosis.CategoryBrakeSqueal, now.Add(-2*time.Hour))))
	require.NoError(t, repo.Save(ctx, record("b", diagnosis.CategoryNormalOperation, now.Add(-time.Hour))))
	require.NoError(t, repo.Save(ctx, record("c", diagnosis.CategoryNormalOperation, now)))

	latest, err := repo.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, diagnosis.DiagnosisID("c"), latest[0].ID)
	assert.Equal(t, diagnosis.DiagnosisID("b"), latest[1].ID)

	page, err := repo.Paginate(ctx, 1, 3, diagnosis.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 3)

	filtered, err := repo.Paginate(ctx, 1, 10, diagnosis.Filter{DamageType: diagnosis.CategoryBrakeSqueal})
	require.NoError(t, err)
	assert.Equal(t, int64(2), filtered.Total)

	byName, err := repo.Paginate(ctx, 1, 10, diagnosis.Filter{FileName: "ol"})
	require.NoError(t, err)
	require.Len(t, byName.Data, 1)
	assert.Equal(t, diagnosis.DiagnosisID("old"), byName.Data[0].ID)

	sum, err := repo.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Counts[diagnosis.CategoryBrakeSqueal])
	assert.Equal(t, 2, sum.Counts[diagnosis.CategoryNormalOperation])
}

func TestFailures(t *testing.T) {
	_, repo, _ := openTestDB(t)
	ctx := context.Background()

	f := &failures.Failure{AnalysisID: "x", Stage: failures.StageDecode, Message: "bad header", CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, f))
	assert.NotZero(t, f.ID)
	require.NoError(t, repo.Save(ctx, &failures.Failure{AnalysisID: "y", Stage: failures.StageExtract}))

	list, err := repo.ListByAnalysis(ctx, "x", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, failures.StageDecode, list[0].Stage)
	assert.Equal(t, "bad header", list[0].Message)
}

func TestAdvice(t *testing.T) {
	_, _, repo := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, &advice.Note{ID: "n1", AnalysisID: "d", Source: advice.SourceLocal, Body: `{"a":1}`, CreatedAt: base}))
	require.NoError(t, repo.Save(ctx, &advice.Note{ID: "n2", AnalysisID: "d", Source: advice.SourceOpenAI, Body: "not json", CreatedAt: base.Add(time.Minute)}))

	latest, err := repo.LatestByAnalysis(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, advice.NoteID("n2"), latest.ID)
	assert.Equal(t, `{"raw":"not json"}`, latest.Body)

	_, err = repo.LatestByAnalysis(ctx, "none")
	assert.ErrorIs(t, err, diagnosis.ErrNotFound)

	page, err := repo.Paginate(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
