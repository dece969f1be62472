package ports

import (
	"context"

	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
)

// DatasetRepository persists dataset metadata records
type DatasetRepository interface {
	Create(ctx context.Context, ds *dataset.Dataset) error
	Update(ctx context.Context, ds *dataset.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error)
	List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error)
	Delete(ctx context.Context, id core.DatasetID) error
}
