package streams

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"logrouter/internal/constants"
	"logrouter/pkg/metrics"
)

// MongoRepository reads streams and their embedded rules.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database, collection string) *MongoRepository {
	if collection == "" {
		collection = constants.DefaultStreamsCollection
	}
	return &MongoRepository{
		collection: db.Collection(collection),
	}
}

// LoadAllEnabled returns every stream not flagged disabled, ordered by id.
// Documents without a disabled field count as enabled.
func (r *MongoRepository) LoadAllEnabled(ctx context.Context) ([]Stream, error) {
	start := time.Now()
	filter := bson.M{"disabled": bson.M{"$ne": true}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		metrics.IncDatabaseQuery("mongodb", "load_streams", "error")
		return nil, fmt.Errorf("failed to find streams: %w", err)
	}
	defer cursor.Close(ctx)

	var streams []Stream
	if err := cursor.All(ctx, &streams); err != nil {
		metrics.IncDatabaseQuery("mongodb", "load_streams", "error")
		return nil, fmt.Errorf("failed to decode streams: %w", err)
	}

	metrics.IncDatabaseQuery("mongodb", "load_streams", "success")
	metrics.ObserveDatabaseQueryDuration("mongodb", "load_streams", time.Since(start))
	return streams, nil
}
