package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "logrouter/cmd/ingest-service/docs"
	"logrouter/internal/config"
	"logrouter/internal/constants"
	"logrouter/internal/logger"
	"logrouter/pkg/bootstrap"
	"logrouter/pkg/logging"
)

// @title           Logrouter Ingest Service API
// @version         1.0
// @description     Operational API for the log decoding and stream routing pipeline
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

const configFileEnv = "CONFIG_FILE"

var errNoConfig = errors.New("config file is required")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           constants.ServiceName,
		Short:         "Log ingestion and stream routing service",
		Long:          "Ingest Service decodes raw log messages and routes them to matching streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (or "+configFileEnv+")")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingest service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(configFile, runServe)
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(configFile, runMigrate)
		},
	}

	root.RunE = serve.RunE
	root.AddCommand(serve, migrate)
	return root
}

// withRuntime loads the config and the structured logger, then hands both to
// run. Failures before the logger exists go to stderr.
func withRuntime(configFile string, run func(*config.Config, logger.Logger) error) error {
	earlyLog := logging.NewEarlyLog(constants.ServiceName)

	if configFile == "" {
		configFile = os.Getenv(configFileEnv)
	}
	if configFile == "" {
		earlyLog.Error("Config file is required. Use --config flag or %s environment variable", configFileEnv)
		return errNoConfig
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return err
	}

	log, err := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return err
	}
	defer func() { _ = log.Sync() }()

	return run(cfg, log)
}

func runServe(cfg *config.Config, log logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.InfowCtx(ctx, "Starting Ingest Service")

	app := NewApp(cfg, log)
	if err := app.Initialize(ctx); err != nil {
		log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
		_ = app.Shutdown(ctx)
		return err
	}

	if err := app.Run(ctx); err != nil {
		log.ErrorwCtx(ctx, "Application error", "error", err)
		return err
	}
	return nil
}

// runMigrate applies the Postgres schema and prepares the Mongo streams
// collection, whichever of the two is configured.
func runMigrate(cfg *config.Config, log logger.Logger) (err error) {
	cfg.Database.RunMigrations = true

	ctx, cancel := context.WithTimeout(context.Background(), constants.MigrationTimeout)
	defer cancel()

	dc := bootstrap.NewDatabaseConnector(cfg, log)

	db, err := dc.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	mongoClient, err := dc.InitMongoDB(ctx)
	defer func() {
		if errs := dc.ShutdownDatabases(ctx, nil, db, mongoClient); len(errs) > 0 && err == nil {
			err = fmt.Errorf("shutdown errors: %v", errs)
		}
	}()
	if err != nil {
		return err
	}

	if mongoClient != nil {
		if _, err := dc.InitStreamsCollection(ctx, dc.MongoDatabase(mongoClient)); err != nil {
			return err
		}
	}

	log.InfowCtx(ctx, "Migrations applied",
		"postgres", db != nil,
		"mongodb", mongoClient != nil,
	)
	return nil
}
