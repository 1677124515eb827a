package diagnosis

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/enginesound/internal/application"
	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/domain/failures"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 100
)

// Service implements the ingestion and query use cases around the pipeline.
// Audio and Failures are optional.
type Service struct {
	Pipeline      *Pipeline
	Repo          domain.Repository
	Audio         domain.AudioStore
	Failures      failures.Repository
	Clock         application.Clock
	Log           *zap.Logger
	PresignExpiry time.Duration
}

// SubmitCommand carries an already validated upload.
type SubmitCommand struct {
	FileName    string
	ContentType string
	Data        []byte
	Metadata    string
}

// Submit runs the pipeline, stores the recording and persists the record.
// An empty recording is analysed like any other and stored as analysis_failed.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.Diagnosis, error) {
	log := s.logger()
	id := uuid.New().String()
	now := s.clock().Now().UTC()

	out := s.Pipeline.Run(ctx, cmd.Data)
	res := out.Result
	if out.Err != nil {
		log.Warn("analysis failed",
			zap.String("id", id),
			zap.String("stage", string(out.Stage)),
			zap.String("file", cmd.FileName),
			zap.Error(out.Err),
		)
		s.recordFailure(ctx, id, out, now)
	}

	rec := &domain.Diagnosis{
		ID:          domain.DiagnosisID(id),
		Timestamp:   now,
		FileName:    cmd.FileName,
		FileSize:    int64(len(cmd.Data)),
		ContentType: cmd.ContentType,
		DamageType:  res.Verdict.Category,
		Confidence:  res.Verdict.Confidence,
		Features:    res.Features,
		Suggestions: res.Suggestions,
		DurationMS:  out.Elapsed.Milliseconds(),
		Metadata:    cmd.Metadata,
	}

	if s.Audio != nil && len(cmd.Data) > 0 {
		key := recordingKey(now, id, cmd.FileName)
		url, err := s.Audio.Put(ctx, key, bytes.NewReader(cmd.Data), int64(len(cmd.Data)), cmd.ContentType)
		if err != nil {
			// the diagnosis is still worth keeping without its recording
			log.Warn("recording upload failed", zap.String("id", id), zap.Error(err))
		} else {
			rec.AudioKey = key
			rec.AudioURL = url
		}
	}

	if err := s.Repo.Save(ctx, rec); err != nil {
		return rec, fmt.Errorf("save diagnosis: %w", err)
	}
	log.Info("analysis stored",
		zap.String("id", id),
		zap.String("damage_type", string(rec.DamageType)),
		zap.Float64("confidence", rec.Confidence),
		zap.Int64("duration_ms", rec.DurationMS),
	)
	return rec, nil
}

func (s *Service) recordFailure(ctx context.Context, id string, out Outcome, now time.Time) {
	if s.Failures == nil {
		return
	}
	f := &failures.Failure{
		AnalysisID: id,
		Stage:      out.Stage,
		Message:    out.Err.Error(),
		CreatedAt:  now,
	}
	if err := s.Failures.Save(ctx, f); err != nil {
		s.logger().Warn("failure entry not stored", zap.String("id", id), zap.Error(err))
	}
}

// Get ambil 1 diagnosis by id
func (s *Service) Get(ctx context.Context, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	return s.Repo.Get(ctx, id)
}

// Latest returns the newest records, clamped to [1, MaxHistoryLimit].
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	return s.Repo.Latest(ctx, ClampLimit(limit))
}

func (s *Service) Paginate(ctx context.Context, page, pageSize int, f domain.Filter) (domain.PaginatedResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxHistoryLimit {
		pageSize = 20
	}
	return s.Repo.Paginate(ctx, page, pageSize, f)
}

// Summary rekap hasil analisis N hari terakhir
func (s *Service) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	sum, err := s.Repo.Summary(ctx, sinceDays)
	if err != nil {
		return domain.Summary{}, err
	}
	if sum.Counts == nil {
		sum.Counts = map[domain.Category]int{}
	}
	sum.SinceDays = sinceDays
	return sum, nil
}

// RecordingURL returns a short-lived download link for the stored recording.
func (s *Service) RecordingURL(ctx context.Context, id domain.DiagnosisID) (string, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.Audio == nil || rec.AudioKey == "" {
		return "", domain.ErrNotFound
	}
	expiry := s.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return s.Audio.PresignedURL(ctx, rec.AudioKey, expiry)
}

// FailuresFor lists the failure entries of one analysis.
func (s *Service) FailuresFor(ctx context.Context, id domain.DiagnosisID, limit int) ([]*failures.Failure, error) {
	if s.Failures == nil {
		return []*failures.Failure{}, nil
	}
	return s.Failures.ListByAnalysis(ctx, string(id), ClampLimit(limit))
}

// ClampLimit applies the history default and maximum.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func recordingKey(now time.Time, id, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("recordings/%s/%s%s", now.Format("2006/01/02"), id, ext)
}
