package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
	ErrVariableNotFound = fmt.Errorf("%w: variable", ErrNotFound)

	// Shape and grid errors
	ErrShapeMismatch  = errors.New("panel shape mismatch")
	ErrWindowMismatch = errors.New("window count does not divide timestep count")
	ErrEmptySeries    = errors.New("series has no observed values")
	ErrEmptyPanel     = errors.New("panel has no data")

	// Preprocessing errors
	ErrUnknownStrategy  = errors.New("unknown preprocessing strategy")
	ErrInvalidPipeline  = errors.New("invalid pipeline specification")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrExcessiveGaps    = errors.New("missing-data ratio exceeds threshold")

	// Ingestion errors
	ErrIngestionFailed = errors.New("file ingestion failed")
	ErrNoTimeColumn    = errors.New("no timestamp column found")
	ErrNoParticipants  = errors.New("no participant rows found")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewShapeError(want, got int) error {
	return fmt.Errorf("%w: want %d values, got %d", ErrShapeMismatch, want, got)
}

func NewWindowError(windows, timesteps int) error {
	return fmt.Errorf("%w: %d windows over %d timesteps", ErrWindowMismatch, windows, timesteps)
}

func NewIngestionError(path string, err error) error {
	return fmt.Errorf("%w for %s: %v", ErrIngestionFailed, path, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrWindowMismatch)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrEmptySeries) ||
		errors.Is(err, ErrEmptyPanel) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrExcessiveGaps)
}
