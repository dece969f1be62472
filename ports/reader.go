package ports

import (
	"context"

	"cohortprep/domain/dataset"
	"cohortprep/domain/preprocess"
	"cohortprep/domain/series"
)

// PanelReader ingests a long-format clinical file (CSV or XLSX) into a
// panel on a regular time grid
type PanelReader interface {
	ReadPanel(ctx context.Context, path string, opts ReadOptions) (*ReadResult, error)
}

// ReadOptions controls grid construction during ingestion
type ReadOptions struct {
	// Resolution of the target grid; defaults to daily
	Resolution series.Resolution
	// Aggregation for multiple observations landing in the same bucket;
	// defaults to mean
	Aggregation preprocess.Aggregation
	// MaxGapRatio flags variables whose missing rate exceeds this
	// threshold (0 disables the check)
	MaxGapRatio float64
}

// ReadResult is the ingestion output: the assembled panel plus metadata
// recovered from the file
type ReadResult struct {
	Panel      *series.Panel
	Dictionary map[string]dataset.DictionaryEntry
	Warnings   []string
}
