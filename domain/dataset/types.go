package dataset

import (
	"time"

	"cohortprep/domain/core"
	"cohortprep/domain/preprocess"
	"cohortprep/domain/profiling"
	"cohortprep/domain/series"
)

// DatasetStatus represents the processing state of a dataset
type DatasetStatus string

const (
	StatusProcessing DatasetStatus = "processing"
	StatusReady      DatasetStatus = "ready"
	StatusFailed     DatasetStatus = "failed"
)

// Dataset represents an ingested cohort panel with its metadata. The raw
// panel itself is not persisted row by row; the dataset record carries the
// source file path, shape, fingerprint and profile.
type Dataset struct {
	ID core.DatasetID `json:"id"`

	// File information
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path,omitempty"`
	FileSize         int64  `json:"file_size"`
	Source           string `json:"source"` // "upload", "cli"

	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`

	// Panel shape
	ParticipantCount int               `json:"participant_count"`
	TimestepCount    int               `json:"timestep_count"`
	VariableCount    int               `json:"variable_count"`
	Resolution       series.Resolution `json:"resolution"`
	GridStart        time.Time         `json:"grid_start"`
	MissingRate      float64           `json:"missing_rate"`
	Fingerprint      string            `json:"fingerprint"`

	// Processing state
	Status       DatasetStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`

	// Rich metadata stored as structured data
	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata contains detailed information about the dataset
type Metadata struct {
	Variables  []VariableInfo           `json:"variables"`
	Dictionary map[string]DictionaryEntry `json:"dictionary,omitempty"`
	Profile    *profiling.CohortProfile `json:"profile,omitempty"`
}

// VariableInfo describes a single clinical variable column
type VariableInfo struct {
	Key          core.VariableKey `json:"key"`
	Label        string           `json:"label,omitempty"`
	Unit         string           `json:"unit,omitempty"`
	MissingCount int              `json:"missing_count"`
	MissingRate  float64          `json:"missing_rate"`
}

// DictionaryEntry carries the data-dictionary row for a variable, when the
// source file ships one
type DictionaryEntry struct {
	Label    string   `json:"label,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Comments string   `json:"comments,omitempty"`
}

// NewDataset creates a new dataset with default values
func NewDataset(originalFilename string) *Dataset {
	return &Dataset{
		ID:               core.DatasetID(core.NewID()),
		OriginalFilename: originalFilename,
		DisplayName:      originalFilename,
		Status:           StatusProcessing,
		Source:           "upload",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

// IsReady returns true if the dataset is ready for use
func (d *Dataset) IsReady() bool {
	return d.Status == StatusReady
}

// MarkReady transitions the dataset into the ready state
func (d *Dataset) MarkReady() {
	d.Status = StatusReady
	d.ErrorMessage = ""
	d.UpdatedAt = time.Now()
}

// MarkFailed transitions the dataset into the failed state
func (d *Dataset) MarkFailed(err error) {
	d.Status = StatusFailed
	if err != nil {
		d.ErrorMessage = err.Error()
	}
	d.UpdatedAt = time.Now()
}

// RunStatus represents the processing state of a preprocess run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records one execution of a preprocessing pipeline over a dataset
type Run struct {
	ID        core.RunID     `json:"id"`
	DatasetID core.DatasetID `json:"dataset_id"`

	Pipeline preprocess.Pipeline `json:"pipeline"`

	// Audit fingerprints of the panel before and after the pipeline
	InputFingerprint  string `json:"input_fingerprint"`
	OutputFingerprint string `json:"output_fingerprint,omitempty"`

	// Output shape
	OutputTimesteps int     `json:"output_timesteps"`
	OutputMissing   float64 `json:"output_missing_rate"`

	// Profile of the pipeline output
	OutputProfile *profiling.CohortProfile `json:"output_profile,omitempty"`

	// Where the preprocessed panel was written, when exported
	OutputPath string `json:"output_path,omitempty"`

	Status       RunStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a pending run for a dataset and pipeline
func NewRun(datasetID core.DatasetID, pipeline preprocess.Pipeline) *Run {
	return &Run{
		ID:        core.RunID(core.NewID()),
		DatasetID: datasetID,
		Pipeline:  pipeline,
		Status:    RunPending,
		StartedAt: time.Now(),
	}
}

// Duration returns the wall-clock runtime, zero while still running
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// MarkCompleted finalizes a successful run
func (r *Run) MarkCompleted() {
	now := time.Now()
	r.Status = RunCompleted
	r.CompletedAt = &now
}

// MarkFailed finalizes a failed run
func (r *Run) MarkFailed(err error) {
	now := time.Now()
	r.Status = RunFailed
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.CompletedAt = &now
}
