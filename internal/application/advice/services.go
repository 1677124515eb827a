package advice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/enginesound/internal/application"
	domain "github.com/bryanwahyu/enginesound/internal/domain/advice"
	"github.com/bryanwahyu/enginesound/internal/domain/ai"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// Service produces and stores advisory notes for existing diagnoses.
type Service struct {
	Diagnoses diagnosis.Repository
	Notes     domain.Repository
	Advisor   ai.Advisor
	Fallback  ai.Advisor // used when Advisor reports ErrQuotaExceeded
	Clock     application.Clock
	Log       *zap.Logger
}

// Generate writes a new note for the diagnosis and persists it.
func (s *Service) Generate(ctx context.Context, id diagnosis.DiagnosisID) (*domain.Note, error) {
	d, err := s.Diagnoses.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	advisor := s.Advisor
	body, err := advisor.Advise(ctx, d)
	if errors.Is(err, ai.ErrQuotaExceeded) && s.Fallback != nil {
		s.logger().Warn("advisor quota exceeded, using fallback", zap.String("id", string(id)))
		advisor = s.Fallback
		body, err = advisor.Advise(ctx, d)
	}
	if err != nil {
		return nil, fmt.Errorf("advise %s: %w", id, err)
	}

	n := &domain.Note{
		ID:         domain.NoteID(uuid.New().String()),
		AnalysisID: string(id),
		Source:     domain.Source(advisor.Name()),
		Body:       body,
		CreatedAt:  s.now(),
	}
	if err := s.Notes.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("save advice: %w", err)
	}
	return n, nil
}

func (s *Service) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Note, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.Notes.Paginate(ctx, page, pageSize)
}

// Latest returns the newest note of a diagnosis.
func (s *Service) Latest(ctx context.Context, id diagnosis.DiagnosisID) (*domain.Note, error) {
	return s.Notes.LatestByAnalysis(ctx, string(id))
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
