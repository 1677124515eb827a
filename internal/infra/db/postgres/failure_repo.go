package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/enginesound/internal/domain/failures"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO sound_analysis_failures (analysis_id, stage, message, created_at)
VALUES ($1,$2,$3,$4)
RETURNING id;`
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return r.db.QueryRowContext(ctx, q,
		sqlcodec.StringOrDash(f.AnalysisID), sqlcodec.StringOrDash(string(f.Stage)), msg, created,
	).Scan(&f.ID)
}

func (r *FailureRepository) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, analysis_id, stage, message, created_at
FROM sound_analysis_failures
WHERE analysis_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, analysisID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.AnalysisID, &f.Stage, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
