package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/bryanwahyu/enginesound/internal/domain/advice"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

type AdviceRepository struct{ coll *mongo.Collection }

func NewAdviceRepository(db *mongo.Database) *AdviceRepository {
	return &AdviceRepository{coll: db.Collection(adviceCollection)}
}

func (r *AdviceRepository) Save(ctx context.Context, n *domain.Note) error {
	doc := *n
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *AdviceRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Note, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*domain.Note{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AdviceRepository) LatestByAnalysis(ctx context.Context, analysisID string) (*domain.Note, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var n domain.Note
	err := r.coll.FindOne(ctx, bson.M{"analysis_id": analysisID}, opts).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, diagnosis.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
