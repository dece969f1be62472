package preprocess

import (
	"cohortprep/domain/core"
	"cohortprep/domain/series"
)

// MovingAverage smooths a series by replacing each value with the average
// of a sliding window of w consecutive values. Only full windows are
// emitted ("valid" mode), so the output has length len(values)-w+1.
// Missing values are skipped within each window; a window with no
// observations yields a missing value.
func MovingAverage(values []float64, w int) ([]float64, error) {
	if w <= 0 {
		return nil, core.NewValidationError("window", "must be positive")
	}
	if w > len(values) {
		return nil, core.ErrInsufficientData
	}

	out := make([]float64, len(values)-w+1)
	for i := range out {
		out[i] = series.NaNMean(values[i : i+w])
	}
	return out, nil
}

// Smooth applies a moving average to every series in the panel. The output
// grid is shortened to the valid-window length and keeps the original
// start, so timestep i of the output covers input timesteps [i, i+w).
func Smooth(panel *series.Panel, w int) (*series.Panel, error) {
	if w <= 0 {
		return nil, core.NewValidationError("window", "must be positive")
	}
	timesteps := panel.NumTimesteps()
	if w > timesteps {
		return nil, core.ErrInsufficientData
	}

	grid := panel.Grid
	grid.Length = timesteps - w + 1
	out := series.NewPanel(panel.Participants, panel.Variables, grid)

	for p := 0; p < panel.NumParticipants(); p++ {
		for v := 0; v < panel.NumVariables(); v++ {
			smoothed, err := MovingAverage(panel.Series(p, v), w)
			if err != nil {
				return nil, err
			}
			if err := out.SetSeries(p, v, smoothed); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
