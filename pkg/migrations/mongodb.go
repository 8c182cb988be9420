package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureStreamsCollection creates the streams collection and the indexes the
// enabled-streams query relies on.
func EnsureStreamsCollection(ctx context.Context, db *mongo.Database, name string) error {
	collections, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(collections) == 0 {
		if err := db.CreateCollection(ctx, name); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "disabled", Value: 1}},
			Options: options.Index().SetName("idx_streams_disabled"),
		},
		{
			Keys:    bson.D{{Key: "rules.field", Value: 1}},
			Options: options.Index().SetName("idx_streams_rules_field"),
		},
	}

	_, err = db.Collection(name).Indexes().CreateMany(ctx, indexes)
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func isAlreadyExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 48 {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
