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

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

const datasetColumns = `
	id, original_filename, COALESCE(file_path, '') as file_path, COALESCE(file_size, 0) as file_size,
	source, display_name, COALESCE(description, '') as description,
	COALESCE(participant_count, 0) as participant_count, COALESCE(timestep_count, 0) as timestep_count,
	COALESCE(variable_count, 0) as variable_count, resolution, grid_start,
	COALESCE(missing_rate, 0.0) as missing_rate, COALESCE(fingerprint, '') as fingerprint,
	status, COALESCE(error_message, '') as error_message, metadata, created_at, updated_at`

// Create inserts a new dataset into the database
func (r *datasetRepository) Create(ctx context.Context, ds *dataset.Dataset) error {
	metadataJSON, err := json.Marshal(ds.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO datasets (
		id, original_filename, file_path, file_size, source, display_name, description,
		participant_count, timestep_count, variable_count, resolution, grid_start,
		missing_rate, fingerprint, status, error_message, metadata, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
	)`

	_, err = r.db.ExecContext(ctx, query,
		ds.ID, ds.OriginalFilename, ds.FilePath, ds.FileSize, ds.Source, ds.DisplayName, ds.Description,
		ds.ParticipantCount, ds.TimestepCount, ds.VariableCount, ds.Resolution, ds.GridStart,
		ds.MissingRate, ds.Fingerprint, ds.Status, ds.ErrorMessage, metadataJSON, ds.CreatedAt, ds.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

// Update rewrites a dataset's mutable fields
func (r *datasetRepository) Update(ctx context.Context, ds *dataset.Dataset) error {
	metadataJSON, err := json.Marshal(ds.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `UPDATE datasets SET
		file_path = $2, file_size = $3, display_name = $4, description = $5,
		participant_count = $6, timestep_count = $7, variable_count = $8,
		resolution = $9, grid_start = $10, missing_rate = $11, fingerprint = $12,
		status = $13, error_message = $14, metadata = $15, updated_at = $16
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		ds.ID, ds.FilePath, ds.FileSize, ds.DisplayName, ds.Description,
		ds.ParticipantCount, ds.TimestepCount, ds.VariableCount,
		ds.Resolution, ds.GridStart, ds.MissingRate, ds.Fingerprint,
		ds.Status, ds.ErrorMessage, metadataJSON, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return core.NewNotFoundError("dataset", ds.ID.String())
	}

	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	ds, err := scanDataset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("dataset", id.String())
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return ds, nil
}

// List retrieves datasets ordered by creation time, newest first
func (r *datasetRepository) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + datasetColumns + ` FROM datasets
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*dataset.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}

	return datasets, rows.Err()
}

// Delete removes a dataset and, via cascade, its runs
func (r *datasetRepository) Delete(ctx context.Context, id core.DatasetID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return core.NewNotFoundError("dataset", id.String())
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row scanner) (*dataset.Dataset, error) {
	var ds dataset.Dataset
	var metadataJSON []byte
	var gridStart sql.NullTime

	err := row.Scan(
		&ds.ID, &ds.OriginalFilename, &ds.FilePath, &ds.FileSize,
		&ds.Source, &ds.DisplayName, &ds.Description,
		&ds.ParticipantCount, &ds.TimestepCount, &ds.VariableCount,
		&ds.Resolution, &gridStart, &ds.MissingRate, &ds.Fingerprint,
		&ds.Status, &ds.ErrorMessage, &metadataJSON, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if gridStart.Valid {
		ds.GridStart = gridStart.Time
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &ds.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &ds, nil
}
