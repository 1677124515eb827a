package diagnosis

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/domain/failures"
	"github.com/bryanwahyu/enginesound/internal/testutil"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memRepo struct {
	mu   sync.Mutex
	rows map[domain.DiagnosisID]*domain.Diagnosis
	err  error
}

func newMemRepo() *memRepo { return &memRepo{rows: map[domain.DiagnosisID]*domain.Diagnosis{}} }

func (r *memRepo) Save(_ context.Context, d *domain.Diagnosis) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[d.ID] = d
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (r *memRepo) Latest(_ context.Context, limit int) ([]*domain.Diagnosis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Diagnosis, 0, len(r.rows))
	for _, d := range r.rows {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) Paginate(_ context.Context, page, pageSize int, _ domain.Filter) (domain.PaginatedResult, error) {
	return domain.PaginatedResult{Page: page, PageSize: pageSize}, nil
}

func (r *memRepo) Summary(_ context.Context, sinceDays int) (domain.Summary, error) {
	return domain.Summary{Total: len(r.rows)}, nil
}

type memAudio struct {
	objects map[string][]byte
	err     error
}

func (a *memAudio) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	b, _ := io.ReadAll(r)
	a.objects[key] = b
	return "s3://bucket/" + key, nil
}

func (a *memAudio) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed/" + key, nil
}

type memFailures struct{ rows []*failures.Failure }

func (m *memFailures) Save(_ context.Context, f *failures.Failure) error {
	m.rows = append(m.rows, f)
	return nil
}

func (m *memFailures) ListByAnalysis(_ context.Context, id string, _ int) ([]*failures.Failure, error) {
	var out []*failures.Failure
	for _, f := range m.rows {
		if f.AnalysisID == id {
			out = append(out, f)
		}
	}
	return out, nil
}

func newService(t *testing.T) (*Service, *memRepo, *memAudio, *memFailures, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	repo := newMemRepo()
	audio := &memAudio{objects: map[string][]byte{}}
	fails := &memFailures{}
	return &Service{
		Pipeline: newTestPipeline(0),
		Repo:     repo,
		Audio:    audio,
		Failures: fails,
		Clock:    fixedClock{time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		Log:      zap.New(core),
	}, repo, audio, fails, logs
}

func TestSubmitStoresRecordAndRecording(t *testing.T) {
	svc, repo, audio, fails, logs := newService(t)
	data := testutil.SineWAV(t, 800, 2, 16000, 1)

	rec, err := svc.Submit(context.Background(), SubmitCommand{
		FileName: "Engine.WAV", ContentType: "audio/wav", Data: data, Metadata: `{"car":"sedan"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryExhaustLeak, rec.DamageType)
	assert.Equal(t, int64(len(data)), rec.FileSize)
	assert.Equal(t, `{"car":"sedan"}`, rec.Metadata)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, "recordings/2024/05/01/"+string(rec.ID)+".wav", rec.AudioKey)
	assert.Equal(t, data, audio.objects[rec.AudioKey])
	assert.Empty(t, fails.rows)

	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
	assert.Equal(t, 1, logs.FilterMessage("analysis stored").Len())

	url, err := svc.RecordingURL(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/"+rec.AudioKey, url)
}

func TestSubmitFailedAnalysisIsStillStored(t *testing.T) {
	svc, repo, _, fails, logs := newService(t)

	rec, err := svc.Submit(context.Background(), SubmitCommand{FileName: "x.mp3", ContentType: "audio/mpeg", Data: []byte("garbage")})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryAnalysisFailed, rec.DamageType)
	assert.Equal(t, domain.FallbackSuggestions(), rec.Suggestions)
	assert.Len(t, repo.rows, 1)

	require.Len(t, fails.rows, 1)
	assert.Equal(t, string(rec.ID), fails.rows[0].AnalysisID)
	assert.Equal(t, failures.StageDecode, fails.rows[0].Stage)

	entries := logs.FilterMessage("analysis failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "decode", entries[0].ContextMap()["stage"])

	listed, err := svc.FailuresFor(context.Background(), rec.ID, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSubmitEmptyUploadIsStoredAsFailed(t *testing.T) {
	svc, repo, audio, fails, _ := newService(t)
	rec, err := svc.Submit(context.Background(), SubmitCommand{FileName: "a.wav", ContentType: "audio/wav"})
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryAnalysisFailed, rec.DamageType)
	assert.Zero(t, rec.Confidence)
	assert.Zero(t, rec.FileSize)
	assert.Equal(t, domain.FallbackSuggestions(), rec.Suggestions)
	assert.Len(t, repo.rows, 1)
	assert.Empty(t, rec.AudioKey)
	assert.Empty(t, audio.objects)
	require.Len(t, fails.rows, 1)
	assert.Equal(t, failures.StageDecode, fails.rows[0].Stage)
}

func TestSubmitUploadErrorKeepsDiagnosis(t *testing.T) {
	svc, repo, audio, _, logs := newService(t)
	audio.err = errors.New("bucket down")

	rec, err := svc.Submit(context.Background(), SubmitCommand{FileName: "a.wav", Data: testutil.SineWAV(t, 800, 1, 16000, 1)})
	require.NoError(t, err)
	assert.Empty(t, rec.AudioKey)
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, 1, logs.FilterMessage("recording upload failed").Len())

	_, err = svc.RecordingURL(context.Background(), rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitSaveError(t *testing.T) {
	svc, repo, _, _, _ := newService(t)
	repo.err = errors.New("db down")
	_, err := svc.Submit(context.Background(), SubmitCommand{FileName: "a.wav", Data: testutil.SineWAV(t, 800, 1, 16000, 1)})
	assert.ErrorContains(t, err, "db down")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, ClampLimit(0))
	assert.Equal(t, 100, ClampLimit(-3))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, 100, ClampLimit(1000))
}

func TestSummaryDefaults(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	sum, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.SinceDays)
	assert.NotNil(t, sum.Counts)
}

func TestServiceWithoutOptionalCollaborators(t *testing.T) {
	svc := &Service{Pipeline: newTestPipeline(0), Repo: newMemRepo()}
	rec, err := svc.Submit(context.Background(), SubmitCommand{FileName: "a", Data: []byte("junk")})
	require.NoError(t, err)
	assert.Empty(t, rec.AudioKey)
	assert.True(t, rec.Timestamp.Location() == time.UTC)

	listed, err := svc.FailuresFor(context.Background(), rec.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestRecordingKeyDefaultsExtension(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "recordings/2024/01/02/abc.bin", recordingKey(now, "abc", "noext"))
	assert.Equal(t, "recordings/2024/01/02/abc.mp3", recordingKey(now, "abc", "clip.MP3"))
}
