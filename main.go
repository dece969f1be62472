package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"cohortprep/adapters/ingest"
	"cohortprep/adapters/postgres"
	"cohortprep/adapters/profiling"
	"cohortprep/api"
	"cohortprep/app"
	"cohortprep/internal"
	"cohortprep/internal/config"
	"cohortprep/internal/errors"
	"cohortprep/internal/migration"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	if err := os.MkdirAll(appConfig.Ingest.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", appConfig.Ingest.DataDir, err)
	}

	// Wire adapters into services
	reader := ingest.NewDataReader(logger)
	profiler := profiling.NewProfiler(appConfig.Pipeline.Workers)
	datasetRepo := postgres.NewDatasetRepository(db)
	runRepo := postgres.NewRunRepository(db)

	datasetService := app.NewDatasetService(reader, profiler, datasetRepo, logger)
	preprocessService := app.NewPreprocessService(
		datasetService, profiler, datasetRepo, runRepo, appConfig.Ingest.DataDir, logger)

	// Health and pprof endpoints live on their own port
	if appConfig.Admin.Enabled {
		admin := api.NewAdminServer(appConfig.Admin.Port, db, logger)
		go func() {
			if err := admin.Start(); err != nil {
				logger.Error("admin server failed: %v", err)
			}
		}()
	}

	server := api.NewServer(appConfig, datasetService, preprocessService, logger)
	log.Fatal(server.Start())
}
