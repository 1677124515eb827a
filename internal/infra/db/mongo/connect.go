package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	analysesCollection = "sound_analyses"
	failuresCollection = "sound_analysis_failures"
	adviceCollection   = "sound_advice"
)

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(25)
	cl, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cl.Ping(ctx2, readpref.Primary()); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return cl, cl.Database(dbName), nil
}

// EnsureIndexes creates the lookup indexes used by the repositories.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		analysesCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "damage_type", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		failuresCollection: {
			{Keys: bson.D{{Key: "analysis_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		adviceCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "analysis_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo indexes on %s: %w", coll, err)
		}
	}
	return nil
}
