package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/infra/db/sqlcodec"
)

// DiagnosisRepository keeps one document per analysis.
type DiagnosisRepository struct {
	coll *mongo.Collection
}

func NewDiagnosisRepository(db *mongo.Database) *DiagnosisRepository {
	return &DiagnosisRepository{coll: db.Collection(analysesCollection)}
}

func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	doc := *d
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now().UTC()
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save analysis: %w", err)
	}
	return nil
}

func (r *DiagnosisRepository) Get(ctx context.Context, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	var d domain.Diagnosis
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	d.Timestamp = d.Timestamp.UTC()
	return &d, nil
}

func (r *DiagnosisRepository) Latest(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "id", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *DiagnosisRepository) Paginate(ctx context.Context, page, pageSize int, f domain.Filter) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	filter := bson.M{}
	if f.DamageType != "" {
		filter["damage_type"] = f.DamageType
	}
	if f.FileName != "" {
		filter["file_name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.FileName), Options: "i"}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("mongo count analyses: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	data, err := r.find(ctx, filter, opts)
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
	cut := time.Now().UTC().AddDate(0, 0, -sinceDays)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": cut}}}},
		{{Key: "$group", Value: bson.M{"_id": "$damage_type", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("mongo summary: %w", err)
	}
	defer cur.Close(ctx)

	var groups []struct {
		Category string `bson:"_id"`
		Count    int    `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return domain.Summary{}, err
	}
	counts := make(map[domain.Category]int, len(groups))
	for _, g := range groups {
		counts[domain.Category(g.Category)] = g.Count
	}
	return sqlcodec.SummaryFrom(counts, sinceDays), nil
}

func (r *DiagnosisRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.Diagnosis, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find analyses: %w", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Diagnosis{}
	for cur.Next(ctx) {
		var d domain.Diagnosis
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		d.Timestamp = d.Timestamp.UTC()
		out = append(out, &d)
	}
	return out, cur.Err()
}
