package diagnosis

import (
	"context"
	"io"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, d *Diagnosis) error
	Get(ctx context.Context, id DiagnosisID) (*Diagnosis, error)
	Latest(ctx context.Context, limit int) ([]*Diagnosis, error)
	Paginate(ctx context.Context, page, pageSize int, f Filter) (PaginatedResult, error)
	Summary(ctx context.Context, sinceDays int) (Summary, error)
}

// AudioStore port (penyimpanan rekaman asli)
type AudioStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
