package sqlite

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/enginesound/internal/domain/advice"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

type AdviceRepository struct{ db *sql.DB }

func NewAdviceRepository(db *sql.DB) *AdviceRepository { return &AdviceRepository{db: db} }

func (r *AdviceRepository) Save(ctx context.Context, n *domain.Note) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sound_advice (id, analysis_id, source, model, body_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    source = excluded.source,
    model = excluded.model,
    body_json = excluded.body_json`,
		string(n.ID), sqlcodec.StringOrDash(n.AnalysisID), string(n.Source), n.Model, sqlcodec.JSONOrEmpty(n.Body), formatTime(n.CreatedAt),
	)
	return err
}

func (r *AdviceRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Note, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return r.query(ctx, `
SELECT id, analysis_id, source, model, body_json, created_at
FROM sound_advice
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
}

func (r *AdviceRepository) LatestByAnalysis(ctx context.Context, analysisID string) (*domain.Note, error) {
	notes, err := r.query(ctx, `
SELECT id, analysis_id, source, model, body_json, created_at
FROM sound_advice
WHERE analysis_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`, analysisID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, diagnosis.ErrNotFound
	}
	return notes[0], nil
}

func (r *AdviceRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Note{}
	for rows.Next() {
		var n domain.Note
		var created string
		if err := rows.Scan(&n.ID, &n.AnalysisID, &n.Source, &n.Model, &n.Body, &created); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
