package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/bryanwahyu/enginesound/internal/domain/failures"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sound_analysis_failures (analysis_id, stage, message, created_at) VALUES (?, ?, ?, ?)`,
		sqlcodec.StringOrDash(f.AnalysisID), sqlcodec.StringOrDash(string(f.Stage)), sqlcodec.StringOrDash(f.Message), formatTime(f.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return nil
}

func (r *FailureRepository) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, analysis_id, stage, message, created_at
FROM sound_analysis_failures
WHERE analysis_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`, analysisID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		var created string
		if err := rows.Scan(&f.ID, &f.AnalysisID, &f.Stage, &f.Message, &created); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
