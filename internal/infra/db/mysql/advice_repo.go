package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/enginesound/internal/domain/advice"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

type AdviceRepository struct {
	db *sql.DB
}

func NewAdviceRepository(db *sql.DB) *AdviceRepository {
	return &AdviceRepository{db: db}
}

// Save inserts an advisory note
func (r *AdviceRepository) Save(ctx context.Context, n *domain.Note) error {
	const q = `
INSERT INTO sound_advice
  (id, analysis_id, source, model, body_json, created_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  source=VALUES(source), model=VALUES(model), body_json=VALUES(body_json);
`
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, n.ID, sqlcodec.StringOrDash(n.AnalysisID), string(n.Source), n.Model, sqlcodec.JSONOrEmpty(n.Body), createdAt)
	return err
}

// Paginate returns a page of notes ordered by created_at desc
func (r *AdviceRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Note, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	const q = `
SELECT id, analysis_id, source, model, body_json, created_at
FROM sound_advice
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.AnalysisID, &n.Source, &n.Model, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// LatestByAnalysis returns the newest note of one diagnosis
func (r *AdviceRepository) LatestByAnalysis(ctx context.Context, analysisID string) (*domain.Note, error) {
	const q = `
SELECT id, analysis_id, source, model, body_json, created_at
FROM sound_advice
WHERE analysis_id=?
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
	var n domain.Note
	err := r.db.QueryRowContext(ctx, q, analysisID).Scan(&n.ID, &n.AnalysisID, &n.Source, &n.Model, &n.Body, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, diagnosis.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
