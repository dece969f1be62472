package preprocess

import (
	"math"

	"cohortprep/domain/core"
	"cohortprep/domain/series"
)

// zScoreEpsilon guards the denominator so a constant series normalizes to
// zero instead of dividing by zero
const zScoreEpsilon = 1e-7

// NormalizeMethod defines how values are rescaled
type NormalizeMethod string

const (
	// NormalizeMinMax linearly rescales each variable to [0, 1] using its
	// observed minimum and maximum
	NormalizeMinMax NormalizeMethod = "minmax"
	// NormalizeZScore rescales each variable to zero mean and unit
	// standard deviation, skipping missing values
	NormalizeZScore NormalizeMethod = "zscore"
)

// IsValid reports whether the method is a supported value
func (m NormalizeMethod) IsValid() bool {
	return m == NormalizeMinMax || m == NormalizeZScore
}

// NormalizeScope controls which values the scaling statistics are
// computed over
type NormalizeScope string

const (
	// ScopeParticipant computes statistics per participant series, so
	// every participant's series gets its own scale
	ScopeParticipant NormalizeScope = "participant"
	// ScopeCohort pools each variable across all participants and
	// timesteps before computing statistics
	ScopeCohort NormalizeScope = "cohort"
)

// IsValid reports whether the scope is a supported value
func (s NormalizeScope) IsValid() bool {
	return s == ScopeParticipant || s == ScopeCohort
}

// Normalize rescales every variable in the panel. Missing values are
// skipped when computing the scaling statistics and stay missing in the
// output.
func Normalize(panel *series.Panel, method NormalizeMethod, scope NormalizeScope) (*series.Panel, error) {
	if !method.IsValid() {
		return nil, core.NewValidationError("normalize method", string(method))
	}
	if !scope.IsValid() {
		return nil, core.NewValidationError("normalize scope", string(scope))
	}
	if panel.IsEmpty() {
		return nil, core.ErrEmptyPanel
	}

	out := panel.Clone()

	for v := 0; v < panel.NumVariables(); v++ {
		if scope == ScopeCohort {
			pooled := panel.VariableValues(v)
			scaler := newScaler(method, pooled)
			for p := 0; p < panel.NumParticipants(); p++ {
				values := out.Series(p, v)
				scaler.apply(values)
				if err := out.SetSeries(p, v, values); err != nil {
					return nil, err
				}
			}
			continue
		}

		for p := 0; p < panel.NumParticipants(); p++ {
			values := out.Series(p, v)
			scaler := newScaler(method, values)
			scaler.apply(values)
			if err := out.SetSeries(p, v, values); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// ZScoreSeries normalizes a single series to zero mean and unit standard
// deviation, skipping missing values. A small epsilon keeps constant
// series finite: they normalize to zero.
func ZScoreSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	scaler := newScaler(NormalizeZScore, out)
	scaler.apply(out)
	return out
}

// MinMaxSeries rescales a single series to [0, 1] using its observed
// minimum and maximum. A constant series maps to zero.
func MinMaxSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	scaler := newScaler(NormalizeMinMax, out)
	scaler.apply(out)
	return out
}

// scaler holds the statistics for one variable's rescaling pass
type scaler struct {
	method NormalizeMethod
	center float64 // mean (zscore) or min (minmax)
	spread float64 // stddev (zscore) or range (minmax)
}

func newScaler(method NormalizeMethod, reference []float64) scaler {
	switch method {
	case NormalizeMinMax:
		min := series.NaNMin(reference)
		max := series.NaNMax(reference)
		return scaler{method: method, center: min, spread: max - min}
	default:
		return scaler{
			method: NormalizeZScore,
			center: series.NaNMean(reference),
			spread: series.NaNStd(reference),
		}
	}
}

func (s scaler) apply(values []float64) {
	if math.IsNaN(s.center) {
		return // nothing observed in the reference; leave values missing
	}
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		switch s.method {
		case NormalizeMinMax:
			if s.spread == 0 {
				values[i] = 0 // constant series
				continue
			}
			values[i] = (v - s.center) / s.spread
		default:
			values[i] = (v - s.center) / (s.spread + zScoreEpsilon)
		}
	}
}
