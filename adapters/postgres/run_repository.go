package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
	"cohortprep/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new preprocess run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

const runColumns = `
	id, dataset_id, pipeline,
	COALESCE(input_fingerprint, '') as input_fingerprint,
	COALESCE(output_fingerprint, '') as output_fingerprint,
	COALESCE(output_timesteps, 0) as output_timesteps,
	COALESCE(output_missing_rate, 0.0) as output_missing_rate,
	output_profile, COALESCE(output_path, '') as output_path,
	status, COALESCE(error_message, '') as error_message,
	started_at, completed_at`

// Create inserts a new run record
func (r *runRepository) Create(ctx context.Context, run *dataset.Run) error {
	pipelineJSON, profileJSON, err := marshalRunPayloads(run)
	if err != nil {
		return err
	}

	query := `INSERT INTO preprocess_runs (
		id, dataset_id, pipeline, input_fingerprint, output_fingerprint,
		output_timesteps, output_missing_rate, output_profile, output_path,
		status, error_message, started_at, completed_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.DatasetID, pipelineJSON, run.InputFingerprint, run.OutputFingerprint,
		run.OutputTimesteps, run.OutputMissing, profileJSON, run.OutputPath,
		run.Status, run.ErrorMessage, run.StartedAt, run.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Update rewrites a run's mutable fields
func (r *runRepository) Update(ctx context.Context, run *dataset.Run) error {
	pipelineJSON, profileJSON, err := marshalRunPayloads(run)
	if err != nil {
		return err
	}

	query := `UPDATE preprocess_runs SET
		pipeline = $2, input_fingerprint = $3, output_fingerprint = $4,
		output_timesteps = $5, output_missing_rate = $6, output_profile = $7,
		output_path = $8, status = $9, error_message = $10, completed_at = $11
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		run.ID, pipelineJSON, run.InputFingerprint, run.OutputFingerprint,
		run.OutputTimesteps, run.OutputMissing, profileJSON,
		run.OutputPath, run.Status, run.ErrorMessage, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return core.NewNotFoundError("run", run.ID.String())
	}

	return nil
}

// GetByID retrieves a run by its ID
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*dataset.Run, error) {
	query := `SELECT ` + runColumns + ` FROM preprocess_runs WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("run", id.String())
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListByDataset retrieves runs for a dataset, newest first
func (r *runRepository) ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*dataset.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM preprocess_runs
	WHERE dataset_id = $1
	ORDER BY started_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, datasetID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*dataset.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func marshalRunPayloads(run *dataset.Run) (pipeline []byte, profile interface{}, err error) {
	pipeline, err = json.Marshal(run.Pipeline)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal pipeline: %w", err)
	}

	// output_profile stays NULL until the run completes
	if run.OutputProfile != nil {
		raw, err := json.Marshal(run.OutputProfile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal output profile: %w", err)
		}
		profile = raw
	}

	return pipeline, profile, nil
}

func scanRun(row scanner) (*dataset.Run, error) {
	var run dataset.Run
	var pipelineJSON, profileJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.DatasetID, &pipelineJSON,
		&run.InputFingerprint, &run.OutputFingerprint,
		&run.OutputTimesteps, &run.OutputMissing,
		&profileJSON, &run.OutputPath,
		&run.Status, &run.ErrorMessage,
		&run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pipelineJSON, &run.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline: %w", err)
	}
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &run.OutputProfile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output profile: %w", err)
		}
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}
