package series

import (
	"math"
)

// NaN-aware statistics over raw float64 slices. These mirror the
// nanmean/nanstd semantics the preprocessing layer is built on: missing
// values are skipped, and a slice with no observed values yields NaN.

// NaNCount returns the number of missing values in the slice
func NaNCount(values []float64) int {
	count := 0
	for _, v := range values {
		if math.IsNaN(v) {
			count++
		}
	}
	return count
}

// ObservedCount returns the number of non-missing values in the slice
func ObservedCount(values []float64) int {
	return len(values) - NaNCount(values)
}

// NaNMean returns the arithmetic mean of the observed values
func NaNMean(values []float64) float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// NaNStd returns the population standard deviation of the observed values
func NaNStd(values []float64) float64 {
	mean := NaNMean(values)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sumSquares := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		deviation := v - mean
		sumSquares += deviation * deviation
		n++
	}
	return math.Sqrt(sumSquares / float64(n))
}

// NaNMin returns the smallest observed value
func NaNMin(values []float64) float64 {
	min := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
	}
	return min
}

// NaNMax returns the largest observed value
func NaNMax(values []float64) float64 {
	max := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return max
}

// NaNSum returns the sum of the observed values. An all-missing slice
// sums to NaN rather than zero so callers can distinguish "no data".
func NaNSum(values []float64) float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum
}

// Observed filters the slice down to its non-missing values
func Observed(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
