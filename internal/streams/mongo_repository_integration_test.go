//go:build integration

package streams

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"logrouter/internal/config"
	"logrouter/internal/testinfra"
	"logrouter/pkg/migrations"
)

func seedStreams(t *testing.T, infra *testinfra.Infra, collection string, docs ...interface{}) {
	t.Helper()
	require.NoError(t, migrations.EnsureStreamsCollection(context.Background(), infra.MongoDB, collection))
	_, err := infra.MongoDB.Collection(collection).InsertMany(context.Background(), docs)
	require.NoError(t, err)
}

func TestMongoRepository_LoadAllEnabled(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	ctx := context.Background()

	seedStreams(t, infra, "streams",
		Stream{ID: "s-b", Title: "web", Rules: []Rule{{ID: "r1", Field: "source", Value: "web-1", Type: RuleExact}}},
		Stream{ID: "s-a", Title: "errors", Rules: []Rule{{ID: "r2", Field: "level", Value: "3", Type: RuleSmaller}}},
		Stream{ID: "s-c", Title: "off", Disabled: true, Rules: []Rule{{ID: "r3", Field: "x", Type: RulePresence}}},
		// Written by an older release, without the disabled flag.
		bson.M{"_id": "s-d", "title": "legacy", "rules": bson.A{bson.M{"_id": "r4", "field": "facility", "type": 5}}},
	)

	repo := NewMongoRepository(infra.MongoDB, "")
	streams, err := repo.LoadAllEnabled(ctx)
	require.NoError(t, err)

	require.Len(t, streams, 3)
	assert.Equal(t, []string{"s-a", "s-b", "s-d"}, []string{streams[0].ID, streams[1].ID, streams[2].ID})
	assert.Equal(t, RuleSmaller, streams[0].Rules[0].Type)
	assert.Equal(t, RuleExact, streams[1].Rules[0].Type)
	assert.Equal(t, "web-1", streams[1].Rules[0].Value)
	assert.Equal(t, RulePresence, streams[2].Rules[0].Type)
	assert.False(t, streams[2].Disabled)
}

func TestMongoRepository_EnsureCollectionIsIdempotent(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	ctx := context.Background()

	require.NoError(t, migrations.EnsureStreamsCollection(ctx, infra.MongoDB, "streams"))
	require.NoError(t, migrations.EnsureStreamsCollection(ctx, infra.MongoDB, "streams"))

	streams, err := NewMongoRepository(infra.MongoDB, "streams").LoadAllEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestRouter_ReloadFromMongo(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	ctx := context.Background()

	seedStreams(t, infra, "streams",
		Stream{ID: "s-web", Rules: []Rule{{ID: "r1", Field: "source", Value: "web-1", Type: RuleExact}}},
		Stream{ID: "s-slow", Rules: []Rule{
			{ID: "r2", Field: "took_ms", Value: "500", Type: RuleGreater},
			{ID: "r3", Field: "path", Value: "^/api/", Type: RuleRegex},
		}},
	)

	router := NewRouter(NewMongoRepository(infra.MongoDB, "streams"), config.StreamsConfig{FallbackEvaluator: true}, nil)
	require.NoError(t, router.ReloadStreams(ctx, true))

	snap := router.Snapshot()
	assert.Equal(t, 2, snap.Streams)
	assert.True(t, snap.Lookup.IsChecked("s-web"))
	assert.Equal(t, 1, snap.Fallback.Len())

	result := router.Match(ctx, map[string]interface{}{
		"source":  "web-1",
		"took_ms": 900,
		"path":    "/api/streams",
	})
	assert.Equal(t, []string{"s-slow", "s-web"}, result.StreamIDs())

	_, err := infra.MongoDB.Collection("streams").UpdateOne(ctx,
		bson.M{"_id": "s-web"}, bson.M{"$set": bson.M{"disabled": true}})
	require.NoError(t, err)

	require.NoError(t, router.ReloadStreams(ctx, true))
	assert.False(t, router.Snapshot().Lookup.IsChecked("s-web"))
	assert.Equal(t, 1, router.Snapshot().Streams)
}
