package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"logrouter/internal/api"
	"logrouter/internal/broker"
	"logrouter/internal/codec"
	"logrouter/internal/config"
	"logrouter/internal/config_handler"
	"logrouter/internal/constants"
	"logrouter/internal/decoding"
	"logrouter/internal/inputs"
	"logrouter/internal/logger"
	"logrouter/internal/output"
	"logrouter/internal/pipeline"
	"logrouter/internal/streams"
	"logrouter/pkg/bootstrap"
	"logrouter/pkg/health"
	"logrouter/pkg/logging"
	"logrouter/pkg/metrics"
	"logrouter/pkg/middleware"
	"logrouter/pkg/ratelimit"
	"logrouter/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	instanceID     string
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	tracerProvider *tracing.TracerProvider

	breaker     *inputs.CircuitBreakerRegistry
	redisInputs *inputs.RedisRegistry
	inputCache  *inputs.MetadataCache
	codecs      *codec.Registry
	router      *streams.Router
	pipeline    *pipeline.Pipeline
	configEvent *config_handler.Handler

	health       *health.CheckerRegistry
	engine       *gin.Engine
	server       *http.Server
	pipelineDone chan error
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:         bootstrap.NewBase(cfg, log),
		dbConnector:  bootstrap.NewDatabaseConnector(cfg, log),
		instanceID:   uuid.NewString(),
		pipelineDone: make(chan error, 1),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(ctx, a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDecodingMetrics()
	metrics.RegisterRoutingMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterAPIMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	initCtx, cancel := context.WithTimeout(ctx, constants.InitTimeout)
	defer cancel()

	if err := a.initDatabases(initCtx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initInputs(); err != nil {
		return fmt.Errorf("failed to initialize inputs: %w", err)
	}

	if err := a.initStreams(initCtx); err != nil {
		return fmt.Errorf("failed to initialize streams: %w", err)
	}

	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		if err := a.InitConfigConsumer(constants.ServiceName, a.instanceID); err != nil {
			a.Logger.WarnwCtx(ctx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		}
	}

	a.initPipeline()
	a.initHealth()
	a.initRouter(ctx)
	a.initServer()

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("postgres is required for input metadata")
	}
	a.db = db

	if a.Config.Database.Redis.Host != "" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "Redis connection failed, continuing without shared input cache",
				"error", err,
			)
		} else {
			a.redis = rdb
		}
	}

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		return fmt.Errorf("mongodb is required for stream definitions")
	}
	a.mongoClient = mongoClient
	return nil
}

// initInputs builds the resolver chain used by every decoder:
// local cache, then Redis, then the circuit breaker, then Postgres.
func (a *App) initInputs() error {
	var registry inputs.Registry = inputs.NewPostgresRepository(a.db)

	a.breaker = inputs.NewCircuitBreakerRegistry(registry, a.Config.CircuitBreaker)
	registry = a.breaker

	if a.redis != nil {
		ttl := a.Config.Inputs.RedisTTL()
		a.redisInputs = inputs.NewRedisRegistry(a.redis, registry, ttl, a.Config.Inputs.RedisKeyPrefix, a.Logger)
		registry = a.redisInputs
	}

	a.inputCache = inputs.NewMetadataCache(registry,
		inputs.WithTTL(a.Config.Decoding.InputCacheTTL),
		inputs.WithSweepInterval(a.Config.Decoding.InputCacheSweepInterval),
		inputs.WithLogger(a.Logger),
	)
	a.codecs = codec.NewDefaultRegistry()
	return nil
}

func (a *App) initStreams(ctx context.Context) error {
	mongoDB := a.dbConnector.MongoDatabase(a.mongoClient)
	collection, err := a.dbConnector.InitStreamsCollection(ctx, mongoDB)
	if err != nil {
		return err
	}

	repo := streams.NewMongoRepository(mongoDB, collection)
	a.router = newStreamRouter(ctx, repo, a.Config.Streams, a.Logger)

	handler := config_handler.NewHandler(constants.ServiceName, a.Logger).
		WithReloader(a.router)
	if a.redisInputs != nil {
		handler = handler.WithInputCache(a.inputCache, a.redisInputs)
	} else {
		handler = handler.WithInputCache(a.inputCache, nil)
	}
	a.configEvent = handler
	return nil
}

// newStreamRouter loads streams before returning so no consumer routes
// against an empty index. A failed load leaves the empty index in place.
func newStreamRouter(ctx context.Context, loader streams.StreamLoader, cfg config.StreamsConfig, log logger.Logger) *streams.Router {
	router := streams.NewRouter(loader, cfg, log)
	if err := router.ReloadStreams(ctx, true); err != nil {
		log.WarnwCtx(logging.WithServiceName(ctx, constants.ServiceName), "Failed to load initial streams",
			"error", err,
		)
	}
	return router
}

func (a *App) initPipeline() {
	sink := output.NewPublisher(a.Producer, a.Config.Broker.Kafka, a.Logger)
	newDecoder := func(partition int) pipeline.Decoder {
		return decoding.NewProcessor(a.codecs, a.inputCache, a.Logger)
	}
	a.pipeline = pipeline.New(a.Config.Pipeline, newDecoder, a.router, sink, a.Logger)
}

func (a *App) initHealth() {
	a.health = health.NewCheckerRegistry()
	a.health.Register(health.NewPostgreSQLChecker(a.db))
	a.health.Register(health.NewMongoDBChecker(a.mongoClient))
	a.health.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	if a.redis != nil {
		a.health.RegisterOptional(health.NewRedisChecker(a.redis))
	}
	a.health.RegisterOptional(health.CheckerFunc{
		CheckerName: "inputs_circuit_breaker",
		Fn: func(ctx context.Context) error {
			if a.breaker.IsOpen() {
				return fmt.Errorf("circuit breaker is %s", a.breaker.State())
			}
			return nil
		},
	})
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if a.Config.Tracing.Enabled {
		engine.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RecoveryMiddleware(a.Logger))
	engine.Use(middleware.LoggerMiddleware(a.Logger))

	if a.Config.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.Config.API.RateLimit)
		engine.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	api.NewHandler(a.router, a.inputCache, a.codecs, a.Logger).RegisterRoutes(engine)

	engine.GET("/health", func(c *gin.Context) {
		h := a.health.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.engine = engine
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.engine,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	// Workers keep publishing during shutdown until the queues are drained.
	go func() {
		a.pipelineDone <- a.pipeline.Run(context.WithoutCancel(ctx))
	}()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.router.StartReloader(gCtx)
	})

	if a.ConfigConsumer != nil {
		topic := a.Config.Broker.Kafka.ConfigUpdateTopic
		g.Go(func() error {
			configCtx := logging.WithServiceName(gCtx, constants.ServiceName)
			a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
				"topic", topic,
				"instance_id", a.instanceID,
			)
			return a.ConfigConsumer.Consume(gCtx, topic, a.configEvent.Handle)
		})
	}

	rawTopic := a.Config.Broker.Kafka.RawTopic
	g.Go(func() error {
		return a.Consumer.Consume(gCtx, rawTopic, a.handleRaw)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- g.Wait()
	}()

	<-gCtx.Done()
	shutdownErr := a.Shutdown(ctx)

	if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return shutdownErr
}

// handleRaw decodes a journal record and queues it on its partition.
func (a *App) handleRaw(ctx context.Context, msg broker.Message) error {
	raw, err := broker.DecodeRawRecord(msg)
	if err != nil {
		return err
	}
	return a.pipeline.Submit(logging.WithMessageID(ctx, raw.ID), raw)
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down ingest service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.pipeline != nil {
			a.pipeline.Close()
			select {
			case err := <-a.pipelineDone:
				if err != nil {
					errs = append(errs, fmt.Errorf("pipeline error: %w", err))
				}
			case <-time.After(constants.ShutdownTimeout):
				errs = append(errs, fmt.Errorf("pipeline did not drain within %s", constants.ShutdownTimeout))
			}
		}

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.inputCache != nil {
			a.inputCache.Close()
		}

		if a.tracerProvider != nil {
			tracerCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.tracerProvider.Shutdown(tracerCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		errs = append(errs, a.dbConnector.ShutdownDatabases(dbCtx, a.redis, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
