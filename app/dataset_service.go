package app

import (
	"context"
	"os"

	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
	"cohortprep/domain/profiling"
	"cohortprep/domain/series"
	"cohortprep/internal"
	"cohortprep/internal/errors"
	"cohortprep/ports"
)

// DatasetService orchestrates file ingestion and dataset lifecycle
type DatasetService struct {
	reader   ports.PanelReader
	profiler ports.Profiler
	datasets ports.DatasetRepository
	log      *internal.Logger
}

// IngestRequest defines inputs for dataset ingestion
type IngestRequest struct {
	// Path to the file already written to the data directory
	Path             string
	OriginalFilename string
	DisplayName      string
	Description      string
	Source           string // "upload", "cli"

	// Grid options, zero values fall back to reader defaults
	Resolution  series.Resolution
	MaxGapRatio float64
}

// IngestResult carries the persisted dataset, the in-memory panel and any
// ingestion warnings
type IngestResult struct {
	Dataset  *dataset.Dataset
	Panel    *series.Panel
	Warnings []string
}

// NewDatasetService creates a dataset service
func NewDatasetService(reader ports.PanelReader, profiler ports.Profiler, datasets ports.DatasetRepository, log *internal.Logger) *DatasetService {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &DatasetService{
		reader:   reader,
		profiler: profiler,
		datasets: datasets,
		log:      log,
	}
}

// Ingest reads a clinical file, profiles the resulting panel and persists
// the dataset record. The record is created in the processing state first
// so failed ingestions stay visible with their error.
func (s *DatasetService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ds := dataset.NewDataset(req.OriginalFilename)
	ds.FilePath = req.Path
	if req.DisplayName != "" {
		ds.DisplayName = req.DisplayName
	}
	ds.Description = req.Description
	if req.Source != "" {
		ds.Source = req.Source
	}
	if info, err := os.Stat(req.Path); err == nil {
		ds.FileSize = info.Size()
	}

	if err := s.datasets.Create(ctx, ds); err != nil {
		return nil, errors.Wrap(err, "failed to create dataset record")
	}

	result, err := s.reader.ReadPanel(ctx, req.Path, ports.ReadOptions{
		Resolution:  req.Resolution,
		MaxGapRatio: req.MaxGapRatio,
	})
	if err != nil {
		s.fail(ctx, ds, err)
		return nil, errors.IngestionError(req.Path, err)
	}
	panel := result.Panel

	profile, err := s.profiler.Profile(ctx, panel)
	if err != nil {
		s.fail(ctx, ds, err)
		return nil, errors.Wrap(err, "failed to profile panel")
	}

	ds.ParticipantCount = panel.NumParticipants()
	ds.TimestepCount = panel.NumTimesteps()
	ds.VariableCount = panel.NumVariables()
	ds.Resolution = panel.Grid.Resolution
	ds.GridStart = panel.Grid.Start
	ds.MissingRate = panel.MissingRate()
	ds.Fingerprint = panel.Fingerprint().String()
	ds.Metadata = buildMetadata(panel, profile, result.Dictionary)
	ds.MarkReady()

	if err := s.datasets.Update(ctx, ds); err != nil {
		return nil, errors.Wrap(err, "failed to persist dataset")
	}

	s.log.Info("dataset %s ready: %s (%d x %d x %d)",
		ds.ID, ds.DisplayName, ds.ParticipantCount, ds.TimestepCount, ds.VariableCount)

	return &IngestResult{Dataset: ds, Panel: panel, Warnings: result.Warnings}, nil
}

// Get retrieves a dataset by ID
func (s *DatasetService) Get(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	return s.datasets.GetByID(ctx, id)
}

// List retrieves datasets, newest first
func (s *DatasetService) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	return s.datasets.List(ctx, limit, offset)
}

// Delete removes the dataset record and its source file
func (s *DatasetService) Delete(ctx context.Context, id core.DatasetID) error {
	ds, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	// Source file removal is best-effort; the record is already gone
	if ds.FilePath != "" {
		if err := os.Remove(ds.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove dataset file %s: %v", ds.FilePath, err)
		}
	}
	return nil
}

// LoadPanel re-reads the dataset's source file onto its recorded grid
func (s *DatasetService) LoadPanel(ctx context.Context, ds *dataset.Dataset) (*series.Panel, error) {
	result, err := s.reader.ReadPanel(ctx, ds.FilePath, ports.ReadOptions{
		Resolution: ds.Resolution,
	})
	if err != nil {
		return nil, errors.IngestionError(ds.FilePath, err)
	}
	return result.Panel, nil
}

func (s *DatasetService) fail(ctx context.Context, ds *dataset.Dataset, cause error) {
	ds.MarkFailed(cause)
	if err := s.datasets.Update(ctx, ds); err != nil {
		s.log.Error("failed to record ingestion failure for %s: %v", ds.ID, err)
	}
}

// buildMetadata assembles per-variable info from the profile, enriched with
// dictionary labels when the source file ships a dictionary sheet
func buildMetadata(panel *series.Panel, profile *profiling.CohortProfile, dictionary map[string]dataset.DictionaryEntry) dataset.Metadata {
	variables := make([]dataset.VariableInfo, 0, panel.NumVariables())
	for _, key := range panel.Variables {
		info := dataset.VariableInfo{Key: key}
		if vp := profile.Variable(key); vp != nil {
			info.MissingCount = vp.MissingStats.MissingCount
			info.MissingRate = vp.MissingStats.MissingRate
		}
		if entry, ok := dictionary[string(key)]; ok {
			info.Label = entry.Label
			info.Unit = entry.Unit
		}
		variables = append(variables, info)
	}

	return dataset.Metadata{
		Variables:  variables,
		Dictionary: dictionary,
		Profile:    profile,
	}
}
