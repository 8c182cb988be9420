//go:build integration

// Package testinfra starts throwaway backing services for integration tests.
package testinfra

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	postgresmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"logrouter/pkg/migrations"
)

const (
	startupTimeout = 60 * time.Second
	pingTimeout    = 10 * time.Second

	PostgresImage = "postgres:15"
	MongoImage    = "mongo:6"
	RedisImage    = "redis:8.4.0-alpine"
	KafkaImage    = "confluentinc/confluent-local:7.5.0"

	MongoDatabase = "logrouter_test"
)

// Options selects the services a test needs.
type Options struct {
	Postgres bool
	Mongo    bool
	Redis    bool
	Kafka    bool
}

type Infra struct {
	PostgresDB   *sql.DB
	PostgresConn string
	MongoDB      *mongo.Database
	MongoClient  *mongo.Client
	RedisClient  *redisclient.Client
	KafkaBrokers []string
}

// Setup starts the selected services and registers their teardown with t.
// Postgres comes up with the schema migrations applied.
func Setup(t *testing.T, opts Options) *Infra {
	t.Helper()
	t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()
	infra := &Infra{}

	steps := []struct {
		enabled bool
		start   func(*testing.T, context.Context, *Infra)
	}{
		{opts.Postgres, startPostgres},
		{opts.Mongo, startMongo},
		{opts.Redis, startRedis},
		{opts.Kafka, startKafka},
	}
	for _, step := range steps {
		if step.enabled {
			step.start(t, ctx, infra)
		}
	}
	return infra
}

func startPostgres(t *testing.T, ctx context.Context, infra *Infra) {
	ctr, err := postgresmodule.Run(ctx, PostgresImage,
		postgresmodule.WithDatabase("inputs"),
		postgresmodule.WithUsername("router"),
		postgresmodule.WithPassword("router"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres")

	conn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(pingCtx), "ping postgres")
	require.NoError(t, migrations.ApplyPostgres(db), "migrate postgres")

	infra.PostgresDB = db
	infra.PostgresConn = conn
}

func startMongo(t *testing.T, ctx context.Context, infra *Infra) {
	ctr, err := mongodb.Run(ctx, MongoImage,
		mongodb.WithUsername("router"),
		mongodb.WithPassword("router"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").WithStartupTimeout(startupTimeout),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start mongo")

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx, nil), "ping mongo")

	infra.MongoClient = client
	infra.MongoDB = client.Database(MongoDatabase)
}

func startRedis(t *testing.T, ctx context.Context, infra *Infra) {
	ctr, err := redismodule.Run(ctx, RedisImage)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start redis")

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redisclient.ParseURL(uri)
	require.NoError(t, err)

	client := redisclient.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx).Err(), "ping redis")

	infra.RedisClient = client
}

func startKafka(t *testing.T, ctx context.Context, infra *Infra) {
	ctr, err := kafkamodule.Run(ctx, KafkaImage, kafkamodule.WithClusterID("logrouter-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	infra.KafkaBrokers = brokers
}
