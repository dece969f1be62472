package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cohortprep/adapters/ingest"
	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
	"cohortprep/domain/preprocess"
	"cohortprep/internal"
	"cohortprep/internal/errors"
	"cohortprep/internal/report"
	"cohortprep/ports"
)

// PreprocessService executes preprocessing pipelines over ingested
// datasets and records every run with input/output fingerprints
type PreprocessService struct {
	datasetService *DatasetService
	profiler       ports.Profiler
	datasets       ports.DatasetRepository
	runs           ports.RunRepository
	dataDir        string
	log            *internal.Logger
}

// NewPreprocessService creates a preprocess service. Exported panels are
// written under dataDir; an empty dataDir disables export.
func NewPreprocessService(datasetService *DatasetService, profiler ports.Profiler, datasets ports.DatasetRepository, runs ports.RunRepository, dataDir string, log *internal.Logger) *PreprocessService {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &PreprocessService{
		datasetService: datasetService,
		profiler:       profiler,
		datasets:       datasets,
		runs:           runs,
		dataDir:        dataDir,
		log:            log,
	}
}

// Execute runs a pipeline against a dataset's panel. The run record is
// persisted up front so failures keep their error message.
func (s *PreprocessService) Execute(ctx context.Context, datasetID core.DatasetID, pipeline preprocess.Pipeline) (*dataset.Run, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	ds, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !ds.IsReady() {
		return nil, errors.ValidationError(fmt.Sprintf("dataset %s is %s, not ready", ds.ID, ds.Status))
	}

	run := dataset.NewRun(datasetID, pipeline)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to create run record")
	}

	run.Status = dataset.RunRunning
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to mark run running")
	}

	panel, err := s.datasetService.LoadPanel(ctx, ds)
	if err != nil {
		return s.fail(ctx, run, err)
	}

	run.InputFingerprint = panel.Fingerprint().String()
	if ds.Fingerprint != "" && run.InputFingerprint != ds.Fingerprint {
		// The source file changed since ingestion. The run still proceeds
		// against the current contents; the fingerprints record the drift.
		s.log.Warn("dataset %s fingerprint drift: recorded %s, loaded %s",
			ds.ID, ds.Fingerprint, run.InputFingerprint)
	}

	output, err := pipeline.Run(panel)
	if err != nil {
		return s.fail(ctx, run, errors.PipelineError(err))
	}

	profile, err := s.profiler.Profile(ctx, output)
	if err != nil {
		return s.fail(ctx, run, errors.Wrap(err, "failed to profile output"))
	}

	run.OutputFingerprint = output.Fingerprint().String()
	run.OutputTimesteps = output.NumTimesteps()
	run.OutputMissing = output.MissingRate()
	run.OutputProfile = profile

	if s.dataDir != "" {
		path := filepath.Join(s.dataDir, fmt.Sprintf("run-%s.csv", run.ID))
		if err := ingest.WritePanelCSV(path, output); err != nil {
			return s.fail(ctx, run, errors.Wrap(err, "failed to export output panel"))
		}
		run.OutputPath = path
	}

	run.MarkCompleted()
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to persist run")
	}

	s.log.Info("run %s completed: %d steps, %d -> %d timesteps in %s",
		run.ID, len(pipeline.Steps), ds.TimestepCount, run.OutputTimesteps, run.Duration())

	return run, nil
}

// GetRun retrieves a run by ID
func (s *PreprocessService) GetRun(ctx context.Context, id core.RunID) (*dataset.Run, error) {
	return s.runs.GetByID(ctx, id)
}

// ListRuns retrieves a dataset's runs, newest first
func (s *PreprocessService) ListRuns(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*dataset.Run, error) {
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, err
	}
	return s.runs.ListByDataset(ctx, datasetID, limit, offset)
}

// Report builds the run report for rendering
func (s *PreprocessService) Report(ctx context.Context, id core.RunID) (*report.RunReport, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ds, err := s.datasets.GetByID(ctx, run.DatasetID)
	if err != nil {
		return nil, err
	}
	return &report.RunReport{Dataset: ds, Run: run}, nil
}

func (s *PreprocessService) fail(ctx context.Context, run *dataset.Run, cause error) (*dataset.Run, error) {
	run.MarkFailed(cause)
	if run.OutputPath != "" {
		// Drop a half-written export
		if err := os.Remove(run.OutputPath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove partial export %s: %v", run.OutputPath, err)
		}
		run.OutputPath = ""
	}
	if err := s.runs.Update(ctx, run); err != nil {
		s.log.Error("failed to record run failure for %s: %v", run.ID, err)
	}
	return nil, cause
}
