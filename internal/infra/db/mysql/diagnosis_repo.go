package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

type DiagnosisRepository struct {
	db *sql.DB
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

// Save insert/update diagnosis record
func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	const q = `
INSERT INTO sound_analyses
(` + sqlcodec.DiagnosisColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 damage_type=VALUES(damage_type), confidence=VALUES(confidence),
 features_json=VALUES(features_json), suggestions_json=VALUES(suggestions_json),
 audio_url=VALUES(audio_url), audio_key=VALUES(audio_key), duration_ms=VALUES(duration_ms);
`
	row, err := sqlcodec.FromDiagnosis(d)
	if err != nil {
		return err
	}
	created := d.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, q, row.Args(created)...)
	return err
}

// Get by ID
func (r *DiagnosisRepository) Get(ctx context.Context, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	const q = `SELECT ` + sqlcodec.DiagnosisColumns + ` FROM sound_analyses WHERE id=? LIMIT 1;`
	var row sqlcodec.Row
	var created time.Time
	if err := r.db.QueryRowContext(ctx, q, id).Scan(row.Dest(&created)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.Diagnosis(created)
}

// Latest records, newest first
func (r *DiagnosisRepository) Latest(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + sqlcodec.DiagnosisColumns + ` FROM sound_analyses ORDER BY created_at DESC, id DESC LIMIT ?;`
	return r.query(ctx, q, limit)
}

// Paginate with offset + limit (classic pagination)
func (r *DiagnosisRepository) Paginate(ctx context.Context, page, pageSize int, f domain.Filter) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	where, args := filterClause(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sound_analyses"+where, args...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("counting analyses: %w", err)
	}

	q := "SELECT " + sqlcodec.DiagnosisColumns + " FROM sound_analyses" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	data, err := r.query(ctx, q, append(args, pageSize, (page-1)*pageSize)...)
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

// Summary counts results per category since N days
func (r *DiagnosisRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().UTC().AddDate(0, 0, -sinceDays)
	const q = `
SELECT damage_type, COUNT(*)
FROM sound_analyses
WHERE created_at >= ?
GROUP BY damage_type;`
	rows, err := r.db.QueryContext(ctx, q, cut)
	if err != nil {
		return domain.Summary{}, err
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
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	out := []*domain.Diagnosis{}
	for rows.Next() {
		var row sqlcodec.Row
		var created time.Time
		if err := rows.Scan(row.Dest(&created)...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		d, err := row.Diagnosis(created)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func filterClause(f domain.Filter) (string, []any) {
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
	return where, args
}
