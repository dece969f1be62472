package preprocess

import (
	"cohortprep/domain/core"
	"cohortprep/domain/series"
)

// Aggregation defines how to collapse a block of consecutive timesteps
// into a single resampled value
type Aggregation string

const (
	AggMean  Aggregation = "mean"  // Average of observed values in block
	AggSum   Aggregation = "sum"   // Sum of observed values in block
	AggMin   Aggregation = "min"   // Minimum observed value in block
	AggMax   Aggregation = "max"   // Maximum observed value in block
	AggCount Aggregation = "count" // Count of observed values in block
)

// IsValid reports whether the aggregation is a supported value
func (a Aggregation) IsValid() bool {
	switch a {
	case AggMean, AggSum, AggMin, AggMax, AggCount:
		return true
	}
	return false
}

func (a Aggregation) apply(block []float64) float64 {
	switch a {
	case AggSum:
		return series.NaNSum(block)
	case AggMin:
		return series.NaNMin(block)
	case AggMax:
		return series.NaNMax(block)
	case AggCount:
		return float64(series.ObservedCount(block))
	default:
		return series.NaNMean(block)
	}
}

// Downsample collapses a panel's time axis into the requested number of
// windows by averaging contiguous blocks. For a panel of shape
// (participants, timesteps, variables) and window count W, each output
// timestep w holds the mean of the w-th block of timesteps/W consecutive
// values, so the result has shape (participants, W, variables).
//
// W must evenly divide the timestep count; anything else is a
// WindowMismatch error. Missing values are skipped inside each block, and
// a block with no observed values stays missing.
func Downsample(panel *series.Panel, windows int) (*series.Panel, error) {
	return DownsampleWith(panel, windows, AggMean)
}

// DownsampleWith is Downsample with a caller-chosen block aggregation
func DownsampleWith(panel *series.Panel, windows int, agg Aggregation) (*series.Panel, error) {
	timesteps := panel.NumTimesteps()
	if windows <= 0 || timesteps == 0 || timesteps%windows != 0 {
		return nil, core.NewWindowError(windows, timesteps)
	}
	if !agg.IsValid() {
		return nil, core.NewValidationError("aggregation", string(agg))
	}

	blockLen := timesteps / windows
	grid := panel.Grid.Downsampled(windows, blockLen)
	out := series.NewPanel(panel.Participants, panel.Variables, grid)

	for p := 0; p < panel.NumParticipants(); p++ {
		for v := 0; v < panel.NumVariables(); v++ {
			source := panel.Series(p, v)
			for w := 0; w < windows; w++ {
				block := source[w*blockLen : (w+1)*blockLen]
				out.Set(p, w, v, agg.apply(block))
			}
		}
	}

	return out, nil
}

// ResampleSeries collapses a single series into windows of blockLen
// consecutive values. The series length must be a multiple of blockLen.
func ResampleSeries(values []float64, blockLen int, agg Aggregation) ([]float64, error) {
	if blockLen <= 0 || len(values) == 0 || len(values)%blockLen != 0 {
		return nil, core.NewWindowError(blockLen, len(values))
	}
	windows := len(values) / blockLen
	out := make([]float64, windows)
	for w := 0; w < windows; w++ {
		out[w] = agg.apply(values[w*blockLen : (w+1)*blockLen])
	}
	return out, nil
}
