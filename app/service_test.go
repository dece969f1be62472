package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cohortprep/adapters/ingest"
	"cohortprep/adapters/profiling"
	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
	"cohortprep/domain/preprocess"
	"cohortprep/ports"
)

// In-memory repositories for service tests

type memDatasetRepo struct {
	byID map[core.DatasetID]*dataset.Dataset
}

func newMemDatasetRepo() *memDatasetRepo {
	return &memDatasetRepo{byID: map[core.DatasetID]*dataset.Dataset{}}
}

func (r *memDatasetRepo) Create(_ context.Context, ds *dataset.Dataset) error {
	clone := *ds
	r.byID[ds.ID] = &clone
	return nil
}

func (r *memDatasetRepo) Update(_ context.Context, ds *dataset.Dataset) error {
	if _, ok := r.byID[ds.ID]; !ok {
		return core.NewNotFoundError("dataset", ds.ID.String())
	}
	clone := *ds
	r.byID[ds.ID] = &clone
	return nil
}

func (r *memDatasetRepo) GetByID(_ context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	ds, ok := r.byID[id]
	if !ok {
		return nil, core.NewNotFoundError("dataset", id.String())
	}
	clone := *ds
	return &clone, nil
}

func (r *memDatasetRepo) List(_ context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	var out []*dataset.Dataset
	for _, ds := range r.byID {
		clone := *ds
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memDatasetRepo) Delete(_ context.Context, id core.DatasetID) error {
	if _, ok := r.byID[id]; !ok {
		return core.NewNotFoundError("dataset", id.String())
	}
	delete(r.byID, id)
	return nil
}

type memRunRepo struct {
	byID map[core.RunID]*dataset.Run
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{byID: map[core.RunID]*dataset.Run{}}
}

func (r *memRunRepo) Create(_ context.Context, run *dataset.Run) error {
	clone := *run
	r.byID[run.ID] = &clone
	return nil
}

func (r *memRunRepo) Update(_ context.Context, run *dataset.Run) error {
	if _, ok := r.byID[run.ID]; !ok {
		return core.NewNotFoundError("run", run.ID.String())
	}
	clone := *run
	r.byID[run.ID] = &clone
	return nil
}

func (r *memRunRepo) GetByID(_ context.Context, id core.RunID) (*dataset.Run, error) {
	run, ok := r.byID[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	clone := *run
	return &clone, nil
}

func (r *memRunRepo) ListByDataset(_ context.Context, datasetID core.DatasetID, limit, offset int) ([]*dataset.Run, error) {
	var out []*dataset.Run
	for _, run := range r.byID {
		if run.DatasetID == datasetID {
			clone := *run
			out = append(out, &clone)
		}
	}
	return out, nil
}

var (
	_ ports.DatasetRepository = (*memDatasetRepo)(nil)
	_ ports.RunRepository     = (*memRunRepo)(nil)
)

func writeCohortFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cohort.csv")
	content := `participant_id,date,heart_rate,steps
p1,2024-03-01,60,1000
p1,2024-03-02,62,1100
p1,2024-03-03,,1200
p1,2024-03-04,66,1300
p2,2024-03-01,70,900
p2,2024-03-02,71,950
p2,2024-03-03,72,1000
p2,2024-03-04,73,1050
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing cohort file: %v", err)
	}
	return path
}

func newServices(t *testing.T) (*DatasetService, *PreprocessService, *memDatasetRepo, *memRunRepo, string) {
	t.Helper()
	dir := t.TempDir()
	datasets := newMemDatasetRepo()
	runs := newMemRunRepo()
	profiler := profiling.NewProfiler(2)
	datasetService := NewDatasetService(ingest.NewDataReader(nil), profiler, datasets, nil)
	preprocessService := NewPreprocessService(datasetService, profiler, datasets, runs, dir, nil)
	return datasetService, preprocessService, datasets, runs, dir
}

func TestDatasetService_Ingest(t *testing.T) {
	datasetService, _, repo, _, dir := newServices(t)
	path := writeCohortFile(t, dir)

	result, err := datasetService.Ingest(context.Background(), IngestRequest{
		Path:             path,
		OriginalFilename: "cohort.csv",
		DisplayName:      "Cardio Cohort",
		Source:           "cli",
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	ds := result.Dataset
	if ds.Status != dataset.StatusReady {
		t.Errorf("expected ready status, got %s", ds.Status)
	}
	if ds.ParticipantCount != 2 || ds.TimestepCount != 4 || ds.VariableCount != 2 {
		t.Errorf("unexpected shape: %dx%dx%d",
			ds.ParticipantCount, ds.TimestepCount, ds.VariableCount)
	}
	if ds.Fingerprint == "" {
		t.Error("expected fingerprint to be recorded")
	}
	if ds.Metadata.Profile == nil {
		t.Fatal("expected profile in metadata")
	}
	if len(ds.Metadata.Variables) != 2 {
		t.Errorf("expected 2 variable infos, got %d", len(ds.Metadata.Variables))
	}

	// The persisted record matches what was returned
	stored, err := repo.GetByID(context.Background(), ds.ID)
	if err != nil {
		t.Fatalf("stored dataset not found: %v", err)
	}
	if stored.Fingerprint != ds.Fingerprint {
		t.Error("stored fingerprint differs from returned dataset")
	}
}

func TestDatasetService_IngestFailureRecorded(t *testing.T) {
	datasetService, _, repo, _, dir := newServices(t)

	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, []byte("participant_id,date,hr\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := datasetService.Ingest(context.Background(), IngestRequest{
		Path:             path,
		OriginalFilename: "empty.csv",
	})
	if err == nil {
		t.Fatal("expected ingestion error for header-only file")
	}

	// The failed record stays visible with its error message
	all, _ := repo.List(context.Background(), 10, 0)
	if len(all) != 1 {
		t.Fatalf("expected 1 dataset record, got %d", len(all))
	}
	if all[0].Status != dataset.StatusFailed {
		t.Errorf("expected failed status, got %s", all[0].Status)
	}
	if all[0].ErrorMessage == "" {
		t.Error("expected error message on failed dataset")
	}
}

func TestPreprocessService_Execute(t *testing.T) {
	datasetService, preprocessService, _, _, dir := newServices(t)
	path := writeCohortFile(t, dir)

	ingested, err := datasetService.Ingest(context.Background(), IngestRequest{
		Path:             path,
		OriginalFilename: "cohort.csv",
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	pipeline := preprocess.Pipeline{Steps: []preprocess.Step{
		{Kind: preprocess.StepImpute, Strategy: preprocess.ImputeMean},
		{Kind: preprocess.StepDownsample, Windows: 2},
		{Kind: preprocess.StepNormalize, Method: preprocess.NormalizeMinMax},
	}}

	run, err := preprocessService.Execute(context.Background(), ingested.Dataset.ID, pipeline)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if run.Status != dataset.RunCompleted {
		t.Errorf("expected completed run, got %s", run.Status)
	}
	if run.OutputTimesteps != 2 {
		t.Errorf("expected 2 output timesteps, got %d", run.OutputTimesteps)
	}
	if run.InputFingerprint == "" || run.OutputFingerprint == "" {
		t.Error("expected both fingerprints recorded")
	}
	if run.InputFingerprint == run.OutputFingerprint {
		t.Error("pipeline output should not fingerprint like its input")
	}
	if run.OutputProfile == nil {
		t.Error("expected output profile")
	}
	if run.OutputPath == "" {
		t.Fatal("expected exported panel path")
	}

	data, err := os.ReadFile(run.OutputPath)
	if err != nil {
		t.Fatalf("reading exported panel: %v", err)
	}
	if !strings.HasPrefix(string(data), "participant_id,timestamp,heart_rate,steps") {
		t.Errorf("unexpected export header: %s", strings.SplitN(string(data), "\n", 2)[0])
	}
	// 2 participants x 2 timesteps + header
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 4 {
		t.Errorf("expected 5 export lines, got %d", lines+1)
	}

	// The report names the pipeline steps
	rep, err := preprocessService.Report(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	md := rep.Markdown()
	if !strings.Contains(md, "impute (mean)") || !strings.Contains(md, "downsample (2 windows, mean)") {
		t.Errorf("report missing pipeline steps:\n%s", md)
	}
}

func TestPreprocessService_FailedRunRecorded(t *testing.T) {
	datasetService, preprocessService, _, runs, dir := newServices(t)
	path := writeCohortFile(t, dir)

	ingested, err := datasetService.Ingest(context.Background(), IngestRequest{
		Path:             path,
		OriginalFilename: "cohort.csv",
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// 3 windows do not divide 4 timesteps
	pipeline := preprocess.Pipeline{Steps: []preprocess.Step{
		{Kind: preprocess.StepDownsample, Windows: 3},
	}}

	_, err = preprocessService.Execute(context.Background(), ingested.Dataset.ID, pipeline)
	if err == nil {
		t.Fatal("expected pipeline failure")
	}

	stored, err := runs.ListByDataset(context.Background(), ingested.Dataset.ID, 10, 0)
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected 1 stored run, got %d (%v)", len(stored), err)
	}
	if stored[0].Status != dataset.RunFailed {
		t.Errorf("expected failed run, got %s", stored[0].Status)
	}
	if stored[0].ErrorMessage == "" {
		t.Error("expected error message on failed run")
	}
}

func TestPreprocessService_RejectsInvalidPipeline(t *testing.T) {
	_, preprocessService, _, _, _ := newServices(t)

	_, err := preprocessService.Execute(context.Background(),
		core.DatasetID(core.NewID()), preprocess.Pipeline{})
	if err == nil {
		t.Fatal("expected validation error for empty pipeline")
	}
}
