package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/bryanwahyu/enginesound/internal/domain/failures"
)

type FailureRepository struct{ coll *mongo.Collection }

func NewFailureRepository(db *mongo.Database) *FailureRepository {
	return &FailureRepository{coll: db.Collection(failuresCollection)}
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.ID == 0 {
		f.ID = time.Now().UnixNano()
	}
	_, err := r.coll.InsertOne(ctx, f)
	return err
}

func (r *FailureRepository) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"analysis_id": analysisID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*domain.Failure{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
