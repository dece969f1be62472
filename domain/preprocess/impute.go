package preprocess

import (
	"math"
	"sort"

	"cohortprep/domain/core"
	"cohortprep/domain/series"
)

// ImputeStrategy defines how missing values are replaced
type ImputeStrategy string

const (
	// ImputeMean replaces missing values with the variable's cohort-wide mean
	ImputeMean ImputeStrategy = "mean"
	// ImputeParticipantMean replaces missing values with the participant's
	// own mean for that variable
	ImputeParticipantMean ImputeStrategy = "participant_mean"
	// ImputeMedian replaces missing values with the variable's cohort-wide median
	ImputeMedian ImputeStrategy = "median"
	// ImputeZero replaces missing values with 0.0
	ImputeZero ImputeStrategy = "zero"
	// ImputeForward carries the last observed value forward; leading gaps
	// are back-filled from the first observation
	ImputeForward ImputeStrategy = "forward"
	// ImputeLinear interpolates linearly between the surrounding
	// observations; edge gaps are held at the nearest observation
	ImputeLinear ImputeStrategy = "linear"
)

// IsValid reports whether the strategy is a supported value
func (s ImputeStrategy) IsValid() bool {
	switch s {
	case ImputeMean, ImputeParticipantMean, ImputeMedian, ImputeZero, ImputeForward, ImputeLinear:
		return true
	}
	return false
}

// Impute returns a copy of the panel with missing values filled according
// to the strategy. Observed values are never changed. A series with no
// observations at all falls back to the cohort-wide fill for the mean and
// median strategies, to zero for the zero strategy, and stays missing for
// the forward and linear strategies.
func Impute(panel *series.Panel, strategy ImputeStrategy) (*series.Panel, error) {
	if !strategy.IsValid() {
		return nil, core.NewValidationError("impute strategy", string(strategy))
	}
	if panel.IsEmpty() {
		return nil, core.ErrEmptyPanel
	}

	out := panel.Clone()

	// Cohort-wide fill values, one per variable
	cohortFill := make([]float64, panel.NumVariables())
	for v := range cohortFill {
		pooled := panel.VariableValues(v)
		switch strategy {
		case ImputeMedian:
			cohortFill[v] = nanMedian(pooled)
		default:
			cohortFill[v] = series.NaNMean(pooled)
		}
	}

	for p := 0; p < panel.NumParticipants(); p++ {
		for v := 0; v < panel.NumVariables(); v++ {
			values := out.Series(p, v)
			switch strategy {
			case ImputeMean, ImputeMedian:
				fillConstant(values, cohortFill[v])
			case ImputeParticipantMean:
				fill := series.NaNMean(values)
				if math.IsNaN(fill) {
					// Participant never observed this variable; fall back
					// to the cohort mean
					fill = cohortFill[v]
				}
				fillConstant(values, fill)
			case ImputeZero:
				fillConstant(values, 0)
			case ImputeForward:
				forwardFill(values)
			case ImputeLinear:
				linearFill(values)
			}
			if err := out.SetSeries(p, v, values); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// fillConstant replaces every missing value with the given constant. A NaN
// constant leaves the series untouched.
func fillConstant(values []float64, constant float64) {
	if math.IsNaN(constant) {
		return
	}
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = constant
		}
	}
}

// forwardFill carries the last observation forward. Leading missing values
// are back-filled from the first observation so the series has no edge gaps.
func forwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
		} else {
			last = v
		}
	}

	// Back-fill the leading gap
	first := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	if math.IsNaN(first) {
		return // nothing observed at all
	}
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = first
		} else {
			break
		}
	}
}

// linearFill interpolates interior gaps between their surrounding
// observations and holds edge gaps at the nearest observation
func linearFill(values []float64) {
	n := len(values)
	prev := -1 // index of last observed value
	for i := 0; i < n; i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			// Interpolate the gap (prev, i)
			step := (values[i] - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		if prev < 0 {
			// Hold the leading gap at the first observation
			for j := 0; j < i; j++ {
				values[j] = values[i]
			}
		}
		prev = i
	}
	if prev < 0 {
		return // nothing observed at all
	}
	// Hold the trailing gap at the last observation
	for j := prev + 1; j < n; j++ {
		values[j] = values[prev]
	}
}

// nanMedian returns the median of the observed values
func nanMedian(values []float64) float64 {
	observed := series.Observed(values)
	if len(observed) == 0 {
		return math.NaN()
	}
	sort.Float64s(observed)
	mid := len(observed) / 2
	if len(observed)%2 == 1 {
		return observed[mid]
	}
	return (observed[mid-1] + observed[mid]) / 2
}
