package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

// DiagnosisRepository stores records in a local SQLite file.
type DiagnosisRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db, now: time.Now}
}

func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	row, err := sqlcodec.FromDiagnosis(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO sound_analyses (`+sqlcodec.DiagnosisColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    damage_type = excluded.damage_type,
    confidence = excluded.confidence,
    features_json = excluded.features_json,
    suggestions_json = excluded.suggestions_json,
    audio_url = excluded.audio_url,
    audio_key = excluded.audio_key,
    duration_ms = excluded.duration_ms`,
		row.Args(formatTime(d.Timestamp))...,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *DiagnosisRepository) Get(ctx context.Context, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	rows, err := r.query(ctx, `SELECT `+sqlcodec.DiagnosisColumns+` FROM sound_analyses WHERE id = ? LIMIT 1`, string(id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows[0], nil
}

func (r *DiagnosisRepository) Latest(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.query(ctx, `SELECT `+sqlcodec.DiagnosisColumns+` FROM sound_analyses ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (r *DiagnosisRepository) Paginate(ctx context.Context, page, pageSize int, f domain.Filter) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	where := " WHERE 1=1"
	var args []any
	if f.DamageType != "" {
		where += " AND damage_type = ?"
		args = append(args, string(f.DamageType))
	}
	if f.FileName != "" {
		where += " AND file_name LIKE ?"
		args = append(args, "%"+f.FileName+"%")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sound_analyses"+where, args...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("count analyses: %w", err)
	}
	data, err := r.query(ctx,
		"SELECT "+sqlcodec.DiagnosisColumns+" FROM sound_analyses"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, pageSize, (page-1)*pageSize)...,
	)
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: sqlcodec.TotalPages(total, pageSize),
	}, nil
}

func (r *DiagnosisRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := formatTime(r.now().AddDate(0, 0, -sinceDays))
	rows, err := r.db.QueryContext(ctx,
		`SELECT damage_type, COUNT(*) FROM sound_analyses WHERE created_at >= ? GROUP BY damage_type`, cut)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()
	counts := map[domain.Category]int{}
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return domain.Summary{}, err
		}
		counts[domain.Category(c)] = n
	}
	return sqlcodec.SummaryFrom(counts, sinceDays), rows.Err()
}

func (r *DiagnosisRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Diagnosis, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	out := []*domain.Diagnosis{}
	for rows.Next() {
		var row sqlcodec.Row
		var created string
		if err := rows.Scan(row.Dest(&created)...); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		ts, err := parseTime(created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
		}
		d, err := row.Diagnosis(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
