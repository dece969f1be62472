package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"cohortprep/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createDatasetsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create datasets table")
	}

	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create preprocess_runs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createDatasetsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		original_filename TEXT NOT NULL,
		file_path TEXT,
		file_size BIGINT DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'upload',
		display_name TEXT NOT NULL,
		description TEXT,
		participant_count INTEGER DEFAULT 0,
		timestep_count INTEGER DEFAULT 0,
		variable_count INTEGER DEFAULT 0,
		resolution TEXT NOT NULL DEFAULT 'day',
		grid_start TIMESTAMPTZ,
		missing_rate DOUBLE PRECISION DEFAULT 0,
		fingerprint TEXT,
		status TEXT NOT NULL DEFAULT 'processing',
		error_message TEXT,
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS preprocess_runs (
		id TEXT PRIMARY KEY,
		dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		pipeline JSONB NOT NULL,
		input_fingerprint TEXT,
		output_fingerprint TEXT,
		output_timesteps INTEGER DEFAULT 0,
		output_missing_rate DOUBLE PRECISION DEFAULT 0,
		output_profile JSONB,
		output_path TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`

	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets(status)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_dataset_id ON preprocess_runs(dataset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON preprocess_runs(status)`,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return err
		}
	}

	return nil
}
