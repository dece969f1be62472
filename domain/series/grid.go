package series

import (
	"time"
)

// Resolution defines the "heartbeat" of a time grid
type Resolution string

const (
	ResolutionHour  Resolution = "hour"
	ResolutionDay   Resolution = "day"
	ResolutionWeek  Resolution = "week"
	ResolutionMonth Resolution = "month"
)

// Duration returns the time.Duration for this resolution
func (r Resolution) Duration() time.Duration {
	switch r {
	case ResolutionHour:
		return time.Hour
	case ResolutionDay:
		return 24 * time.Hour
	case ResolutionWeek:
		return 7 * 24 * time.Hour
	case ResolutionMonth:
		return 30 * 24 * time.Hour // Approximation
	default:
		return 24 * time.Hour
	}
}

// IsValid reports whether the resolution is one of the supported values
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionHour, ResolutionDay, ResolutionWeek, ResolutionMonth:
		return true
	}
	return false
}

// Grid is a sorted, evenly spaced sequence of timestamps shared by every
// participant and variable in a panel. Stride is the number of
// base-resolution steps between consecutive buckets; an ingested daily
// grid has stride 1, and downsampling a 28-day grid into 4 windows yields
// a daily grid with stride 7. Zero stride is treated as 1.
type Grid struct {
	Start      time.Time
	Resolution Resolution
	Length     int
	Stride     int
}

func (g Grid) step() time.Duration {
	stride := g.Stride
	if stride <= 0 {
		stride = 1
	}
	return time.Duration(stride) * g.Resolution.Duration()
}

// NewGrid generates a grid covering [start, end] at the given resolution.
// Start is truncated down to the resolution boundary.
func NewGrid(start, end time.Time, resolution Resolution) Grid {
	step := resolution.Duration()
	anchor := TruncateToResolution(start, resolution)

	length := 0
	for current := anchor; !current.After(end); current = current.Add(step) {
		length++
	}

	return Grid{Start: anchor, Resolution: resolution, Length: length, Stride: 1}
}

// At returns the timestamp of grid index i
func (g Grid) At(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.step())
}

// Index returns the grid bucket for a timestamp, or -1 when it falls
// outside the grid
func (g Grid) Index(t time.Time) int {
	if t.Before(g.Start) {
		return -1
	}
	idx := int(t.Sub(g.Start) / g.step())
	if idx >= g.Length {
		return -1
	}
	return idx
}

// Downsampled returns a grid with the same start covering the same span in
// `windows` buckets, each `blockLen` base steps wide.
func (g Grid) Downsampled(windows, blockLen int) Grid {
	stride := g.Stride
	if stride <= 0 {
		stride = 1
	}
	return Grid{
		Start:      g.Start,
		Resolution: g.Resolution,
		Length:     windows,
		Stride:     stride * blockLen,
	}
}

// Timestamps materializes the full grid
func (g Grid) Timestamps() []time.Time {
	out := make([]time.Time, g.Length)
	for i := range out {
		out[i] = g.At(i)
	}
	return out
}

// TruncateToResolution rounds time down to the resolution boundary
func TruncateToResolution(t time.Time, resolution Resolution) time.Time {
	switch resolution {
	case ResolutionHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case ResolutionDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case ResolutionWeek:
		// Round down to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		monday := t.AddDate(0, 0, -(weekday - 1))
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	case ResolutionMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}
