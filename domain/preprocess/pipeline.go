package preprocess

import (
	"fmt"

	"cohortprep/domain/core"
	"cohortprep/domain/series"
)

// StepKind identifies a preprocessing operation
type StepKind string

const (
	StepImpute     StepKind = "impute"
	StepSmooth     StepKind = "smooth"
	StepDownsample StepKind = "downsample"
	StepNormalize  StepKind = "normalize"
)

// Step is one declarative pipeline operation. Only the fields relevant to
// the step kind are read; the rest stay at their zero values.
type Step struct {
	Kind StepKind `json:"kind"`

	// Impute
	Strategy ImputeStrategy `json:"strategy,omitempty"`

	// Smooth: sliding window width
	Window int `json:"window,omitempty"`

	// Downsample: target window count and block aggregation
	Windows     int         `json:"windows,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty"`

	// Normalize
	Method NormalizeMethod `json:"method,omitempty"`
	Scope  NormalizeScope  `json:"scope,omitempty"`
}

// Validate checks the step's parameters without running it
func (s Step) Validate() error {
	switch s.Kind {
	case StepImpute:
		if !s.Strategy.IsValid() {
			return fmt.Errorf("%w: impute strategy %q", core.ErrInvalidPipeline, s.Strategy)
		}
	case StepSmooth:
		if s.Window <= 0 {
			return fmt.Errorf("%w: smooth window must be positive", core.ErrInvalidPipeline)
		}
	case StepDownsample:
		if s.Windows <= 0 {
			return fmt.Errorf("%w: downsample window count must be positive", core.ErrInvalidPipeline)
		}
		if s.Aggregation != "" && !s.Aggregation.IsValid() {
			return fmt.Errorf("%w: aggregation %q", core.ErrInvalidPipeline, s.Aggregation)
		}
	case StepNormalize:
		if !s.Method.IsValid() {
			return fmt.Errorf("%w: normalize method %q", core.ErrInvalidPipeline, s.Method)
		}
		if s.Scope != "" && !s.Scope.IsValid() {
			return fmt.Errorf("%w: normalize scope %q", core.ErrInvalidPipeline, s.Scope)
		}
	default:
		return fmt.Errorf("%w: unknown step kind %q", core.ErrInvalidPipeline, s.Kind)
	}
	return nil
}

// Describe returns a short human-readable label for run reports
func (s Step) Describe() string {
	switch s.Kind {
	case StepImpute:
		return fmt.Sprintf("impute (%s)", s.Strategy)
	case StepSmooth:
		return fmt.Sprintf("smooth (window %d)", s.Window)
	case StepDownsample:
		agg := s.Aggregation
		if agg == "" {
			agg = AggMean
		}
		return fmt.Sprintf("downsample (%d windows, %s)", s.Windows, agg)
	case StepNormalize:
		scope := s.Scope
		if scope == "" {
			scope = ScopeCohort
		}
		return fmt.Sprintf("normalize (%s, %s scope)", s.Method, scope)
	default:
		return string(s.Kind)
	}
}

// Pipeline is an ordered list of preprocessing steps applied to a panel
type Pipeline struct {
	Steps []Step `json:"steps"`
}

// Validate checks every step; an empty pipeline is invalid
func (p Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", core.ErrInvalidPipeline)
	}
	for i, step := range p.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// Run executes the steps in order, threading each step's output into the
// next. The input panel is never mutated.
func (p Pipeline) Run(panel *series.Panel) (*series.Panel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	current := panel
	for i, step := range p.Steps {
		next, err := applyStep(current, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Describe(), err)
		}
		current = next
	}
	return current, nil
}

func applyStep(panel *series.Panel, step Step) (*series.Panel, error) {
	switch step.Kind {
	case StepImpute:
		return Impute(panel, step.Strategy)
	case StepSmooth:
		return Smooth(panel, step.Window)
	case StepDownsample:
		agg := step.Aggregation
		if agg == "" {
			agg = AggMean
		}
		return DownsampleWith(panel, step.Windows, agg)
	case StepNormalize:
		scope := step.Scope
		if scope == "" {
			scope = ScopeCohort
		}
		return Normalize(panel, step.Method, scope)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownStrategy, step.Kind)
	}
}
