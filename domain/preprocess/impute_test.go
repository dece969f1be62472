package preprocess

import (
	"math"
	"testing"
)

func TestImpute_CohortMean(t *testing.T) {
	// Two participants sharing one variable: observed values {1, 3, 5} → mean 3
	panel := buildPanel(t, 2, 3, 1, []float64{
		1, math.NaN(), 3, // participant a
		math.NaN(), 5, math.NaN(), // participant b
	})

	out, err := Impute(panel, ImputeMean)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}

	if got := out.At(0, 1, 0); got != 3 {
		t.Errorf("expected cohort mean 3, got %.2f", got)
	}
	if got := out.At(1, 0, 0); got != 3 {
		t.Errorf("expected cohort mean 3, got %.2f", got)
	}
	// Observed values untouched
	if got := out.At(1, 1, 0); got != 5 {
		t.Errorf("observed value changed: got %.2f", got)
	}
	// Input panel untouched
	if !panel.IsMissing(0, 1, 0) {
		t.Error("Impute mutated its input panel")
	}
}

func TestImpute_ParticipantMeanFallsBackToCohort(t *testing.T) {
	panel := buildPanel(t, 2, 2, 1, []float64{
		2, 4, // participant a: own mean 3
		math.NaN(), math.NaN(), // participant b: nothing observed
	})

	out, err := Impute(panel, ImputeParticipantMean)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}

	// Participant b has no observations, so the cohort mean (3) fills in
	if got := out.At(1, 0, 0); got != 3 {
		t.Errorf("expected cohort fallback 3, got %.2f", got)
	}
}

func TestImpute_Median(t *testing.T) {
	panel := buildPanel(t, 1, 5, 1, []float64{1, 100, math.NaN(), 2, 3})

	out, err := Impute(panel, ImputeMedian)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}

	// Observed {1, 100, 2, 3} → median 2.5
	if got := out.At(0, 2, 0); got != 2.5 {
		t.Errorf("expected median 2.5, got %.2f", got)
	}
}

func TestImpute_Zero(t *testing.T) {
	panel := buildPanel(t, 1, 2, 1, []float64{math.NaN(), 7})

	out, err := Impute(panel, ImputeZero)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}
	if got := out.At(0, 0, 0); got != 0 {
		t.Errorf("expected 0, got %.2f", got)
	}
}

func TestImpute_ForwardFill(t *testing.T) {
	panel := buildPanel(t, 1, 6, 1, []float64{
		math.NaN(), math.NaN(), 4, math.NaN(), 6, math.NaN(),
	})

	out, err := Impute(panel, ImputeForward)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}

	want := []float64{4, 4, 4, 4, 6, 6} // leading gap back-filled, rest carried forward
	for i, expected := range want {
		if got := out.At(0, i, 0); got != expected {
			t.Errorf("timestep %d: want %.1f, got %.1f", i, expected, got)
		}
	}
}

func TestImpute_LinearInterpolation(t *testing.T) {
	panel := buildPanel(t, 1, 7, 1, []float64{
		math.NaN(), 2, math.NaN(), math.NaN(), 8, math.NaN(), math.NaN(),
	})

	out, err := Impute(panel, ImputeLinear)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}

	want := []float64{2, 2, 4, 6, 8, 8, 8} // edges held, interior interpolated
	for i, expected := range want {
		if got := out.At(0, i, 0); got != expected {
			t.Errorf("timestep %d: want %.1f, got %.1f", i, expected, got)
		}
	}
}

func TestImpute_ForwardLeavesEmptySeriesMissing(t *testing.T) {
	panel := buildPanel(t, 1, 3, 1, []float64{math.NaN(), math.NaN(), math.NaN()})

	out, err := Impute(panel, ImputeForward)
	if err != nil {
		t.Fatalf("Impute failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !out.IsMissing(0, i, 0) {
			t.Errorf("timestep %d: empty series should stay missing", i)
		}
	}
}

func TestImpute_RejectsUnknownStrategy(t *testing.T) {
	panel := buildPanel(t, 1, 2, 1, []float64{1, 2})
	if _, err := Impute(panel, ImputeStrategy("hotdeck")); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
