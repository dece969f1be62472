package preprocess

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"cohortprep/domain/core"
	"cohortprep/domain/series"
)

func dayGrid(length int) series.Grid {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return series.Grid{Start: start, Resolution: series.ResolutionDay, Length: length, Stride: 1}
}

func buildPanel(t *testing.T, participants, timesteps, variables int, values []float64) *series.Panel {
	t.Helper()
	ids := make([]core.ParticipantID, participants)
	for i := range ids {
		ids[i] = core.ParticipantID(string(rune('a' + i)))
	}
	keys := make([]core.VariableKey, variables)
	for i := range keys {
		keys[i] = core.VariableKey(string(rune('x' + i)))
	}
	panel, err := series.NewPanelFromValues(ids, keys, dayGrid(timesteps), values)
	if err != nil {
		t.Fatalf("building panel: %v", err)
	}
	return panel
}

func TestDownsample_BlockMeans(t *testing.T) {
	// One participant, 6 days, one variable, downsampled to 3 windows of 2 days
	panel := buildPanel(t, 1, 6, 1, []float64{1, 3, 5, 7, 9, 11})

	out, err := Downsample(panel, 3)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}

	if out.NumTimesteps() != 3 {
		t.Fatalf("expected 3 windows, got %d", out.NumTimesteps())
	}

	want := []float64{2, 6, 10}
	for w, expected := range want {
		if got := out.At(0, w, 0); got != expected {
			t.Errorf("window %d: want %.1f, got %.1f", w, expected, got)
		}
	}

	// Grid should cover the same span in 2-day buckets
	if out.Grid.Stride != 2 {
		t.Errorf("expected stride 2, got %d", out.Grid.Stride)
	}
	if !out.Grid.At(1).Equal(panel.Grid.At(2)) {
		t.Errorf("window 1 should start at day 2, got %v", out.Grid.At(1))
	}
}

func TestDownsample_WindowMustDivideTimesteps(t *testing.T) {
	panel := buildPanel(t, 1, 7, 1, []float64{1, 2, 3, 4, 5, 6, 7})

	_, err := Downsample(panel, 3)
	if err == nil {
		t.Fatal("expected error when windows do not divide timesteps")
	}
	if !core.IsShapeError(err) {
		t.Errorf("expected window mismatch error, got %v", err)
	}

	if _, err := Downsample(panel, 0); err == nil {
		t.Error("expected error for zero windows")
	}
}

func TestDownsample_NaNAwareBlocks(t *testing.T) {
	panel := buildPanel(t, 1, 4, 1, []float64{2, math.NaN(), math.NaN(), math.NaN()})

	out, err := Downsample(panel, 2)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}

	// First block averages its single observation; all-missing block stays missing
	if got := out.At(0, 0, 0); got != 2 {
		t.Errorf("expected partial block mean 2, got %.2f", got)
	}
	if !out.IsMissing(0, 1, 0) {
		t.Errorf("all-missing block should stay missing, got %.2f", out.At(0, 1, 0))
	}
}

// TestDownsample_BlockMeanIdentity checks the windowed mean against
// independently computed block means over a randomized multi-participant,
// multi-variable panel: output[p][w][v] must equal the arithmetic mean of
// the w-th contiguous block of timesteps/windows consecutive values.
func TestDownsample_BlockMeanIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const (
		participants = 5
		days         = 24
		variables    = 3
		windows      = 6
	)

	values := make([]float64, participants*days*variables)
	for i := range values {
		values[i] = rng.NormFloat64() * 10
	}
	panel := buildPanel(t, participants, days, variables, values)

	out, err := Downsample(panel, windows)
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}

	blockLen := days / windows
	for p := 0; p < participants; p++ {
		for v := 0; v < variables; v++ {
			source := panel.Series(p, v)
			for w := 0; w < windows; w++ {
				sum := 0.0
				for i := w * blockLen; i < (w+1)*blockLen; i++ {
					sum += source[i]
				}
				want := sum / float64(blockLen)
				got := out.At(p, w, v)
				if math.Abs(got-want) > 1e-9 {
					t.Fatalf("participant %d variable %d window %d: want %.9f, got %.9f",
						p, v, w, want, got)
				}
			}
		}
	}
}

func TestDownsampleWith_Aggregations(t *testing.T) {
	panel := buildPanel(t, 1, 4, 1, []float64{1, 5, math.NaN(), 3})

	cases := []struct {
		agg  Aggregation
		want []float64
	}{
		{AggSum, []float64{6, 3}},
		{AggMin, []float64{1, 3}},
		{AggMax, []float64{5, 3}},
		{AggCount, []float64{2, 1}},
	}

	for _, tc := range cases {
		out, err := DownsampleWith(panel, 2, tc.agg)
		if err != nil {
			t.Fatalf("DownsampleWith(%s) failed: %v", tc.agg, err)
		}
		for w, expected := range tc.want {
			if got := out.At(0, w, 0); got != expected {
				t.Errorf("%s window %d: want %.1f, got %.1f", tc.agg, w, expected, got)
			}
		}
	}
}

func TestDownsampleWith_RejectsUnknownAggregation(t *testing.T) {
	panel := buildPanel(t, 1, 4, 1, []float64{1, 2, 3, 4})
	if _, err := DownsampleWith(panel, 2, Aggregation("variance")); err == nil {
		t.Error("expected error for unknown aggregation")
	}
}

func TestResampleSeries(t *testing.T) {
	got, err := ResampleSeries([]float64{1, 2, 3, 4, 5, 6}, 3, AggMean)
	if err != nil {
		t.Fatalf("ResampleSeries failed: %v", err)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Errorf("unexpected resampled series: %v", got)
	}

	if _, err := ResampleSeries([]float64{1, 2, 3}, 2, AggMean); err == nil {
		t.Error("expected error when block length does not divide series")
	}
}
