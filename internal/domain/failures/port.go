package failures

import "context"

// Repository defines persistence for failure entries
type Repository interface {
	Save(ctx context.Context, f *Failure) error
	ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*Failure, error)
}
