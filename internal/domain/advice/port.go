package advice

import "context"

// Repository port for persisting and querying advisory notes
type Repository interface {
	Save(ctx context.Context, n *Note) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Note, error)
	LatestByAnalysis(ctx context.Context, analysisID string) (*Note, error)
}
