package ports

import (
	"context"

	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
)

// RunRepository persists preprocess run records
type RunRepository interface {
	Create(ctx context.Context, run *dataset.Run) error
	Update(ctx context.Context, run *dataset.Run) error
	GetByID(ctx context.Context, id core.RunID) (*dataset.Run, error)
	ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*dataset.Run, error)
}
