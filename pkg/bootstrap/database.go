package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/logger"
	"logrouter/pkg/migrations"
	"logrouter/pkg/retry"
)

// DatabaseConnector opens the stores named in the database section. A store
// whose address is left empty is reported as nil, nil.
type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
	Policy retry.Policy
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = constants.DatabaseConnectAttempts
	return &DatabaseConnector{Config: cfg, Logger: log, Policy: policy}
}

// PostgresDSN renders cfg as a lib/pq URL, escaping credentials.
func PostgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// ping retries fn with the connector's policy so a store that is still
// starting does not fail the service.
func (dc *DatabaseConnector) ping(ctx context.Context, store string, fn func(context.Context) error) error {
	return retry.RetryWithCallback(ctx, dc.Policy, func() error {
		return fn(ctx)
	}, func(attempt int, err error, next time.Duration) {
		dc.Logger.WarnwCtx(ctx, "Database not reachable yet",
			"store", store,
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
	})
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	cfg := dc.Config.Database.Redis
	if cfg.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "Redis connected", "addr", rdb.Options().Addr)
	return rdb, nil
}

func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	cfg := dc.Config.Database.Postgres
	if cfg.Host == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(constants.PostgresMaxOpenConns)
	db.SetMaxIdleConns(constants.PostgresMaxIdleConns)
	db.SetConnMaxLifetime(constants.PostgresConnMaxLifetime)

	if err := dc.ping(ctx, "postgresql", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	dc.Logger.InfowCtx(ctx, "PostgreSQL connected", "host", cfg.Host, "dbname", cfg.DBName)

	if dc.Config.Database.RunMigrations {
		if err := migrations.ApplyPostgres(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		dc.Logger.InfowCtx(ctx, "PostgreSQL migrations applied")
	}

	return db, nil
}

func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	cfg := dc.Config.Database.MongoDB
	if cfg.URI == "" {
		return nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	err = dc.ping(ctx, "mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "MongoDB connected", "database", dc.mongoDatabaseName())
	return client, nil
}

func (dc *DatabaseConnector) mongoDatabaseName() string {
	if name := dc.Config.Database.MongoDB.Database; name != "" {
		return name
	}
	return constants.DefaultMongoDBName
}

// MongoDatabase returns the configured database, defaulting its name.
func (dc *DatabaseConnector) MongoDatabase(client *mongo.Client) *mongo.Database {
	return client.Database(dc.mongoDatabaseName())
}

// InitStreamsCollection prepares the streams collection when migrations are
// enabled and returns its name.
func (dc *DatabaseConnector) InitStreamsCollection(ctx context.Context, db *mongo.Database) (string, error) {
	name := dc.Config.Database.MongoDB.StreamsCollection
	if name == "" {
		name = constants.DefaultStreamsCollection
	}
	if !dc.Config.Database.RunMigrations {
		return name, nil
	}
	if err := migrations.EnsureStreamsCollection(ctx, db, name); err != nil {
		return "", err
	}
	dc.Logger.InfowCtx(ctx, "MongoDB streams collection ready", "collection", name)
	return name, nil
}

// ShutdownDatabases closes whichever of the clients are non-nil.
func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, rdb *redis.Client, pg *sql.DB, mc *mongo.Client) []error {
	closers := []struct {
		name  string
		open  bool
		close func() error
	}{
		{"redis", rdb != nil, func() error { return rdb.Close() }},
		{"postgres", pg != nil, func() error { return pg.Close() }},
		{"mongodb", mc != nil, func() error { return mc.Disconnect(ctx) }},
	}

	var errs []error
	for _, c := range closers {
		if !c.open {
			continue
		}
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close error: %w", c.name, err))
		}
	}
	return errs
}
