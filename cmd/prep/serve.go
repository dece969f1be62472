package main

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

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

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dataset and preprocessing API server",
		Long: `Start the HTTP API backed by PostgreSQL. Configuration comes from
environment variables (DATABASE_URL, PORT, DATA_DIR, ...), optionally
loaded from a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load()
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()

			db, err := connectDatabase(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := os.MkdirAll(appConfig.Ingest.DataDir, 0o755); err != nil {
				return errors.Wrap(err, "failed to create data directory")
			}

			reader := ingest.NewDataReader(logger)
			profiler := profiling.NewProfiler(appConfig.Pipeline.Workers)
			datasetRepo := postgres.NewDatasetRepository(db)
			runRepo := postgres.NewRunRepository(db)

			datasetService := app.NewDatasetService(reader, profiler, datasetRepo, logger)
			preprocessService := app.NewPreprocessService(
				datasetService, profiler, datasetRepo, runRepo, appConfig.Ingest.DataDir, logger)

			if appConfig.Admin.Enabled {
				admin := api.NewAdminServer(appConfig.Admin.Port, db, logger)
				go func() {
					if err := admin.Start(); err != nil {
						logger.Error("admin server failed: %v", err)
					}
				}()
			}

			return api.NewServer(appConfig, datasetService, preprocessService, logger).Start()
		},
	}
}

func connectDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}
