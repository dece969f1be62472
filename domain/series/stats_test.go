package series

import (
	"math"
	"testing"
)

func TestNaNMean_SkipsMissing(t *testing.T) {
	values := []float64{1, math.NaN(), 3, math.NaN(), 5}
	if got := NaNMean(values); got != 3 {
		t.Errorf("expected mean 3, got %.4f", got)
	}
}

func TestNaNMean_AllMissing(t *testing.T) {
	values := []float64{math.NaN(), math.NaN()}
	if got := NaNMean(values); !math.IsNaN(got) {
		t.Errorf("expected NaN for all-missing slice, got %.4f", got)
	}
}

func TestNaNStd_PopulationSemantics(t *testing.T) {
	// Observed values {2, 4, 6}: mean 4, population variance 8/3
	values := []float64{2, math.NaN(), 4, 6}
	want := math.Sqrt(8.0 / 3.0)
	if got := NaNStd(values); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %.6f, got %.6f", want, got)
	}
}

func TestNaNStd_ConstantSeries(t *testing.T) {
	values := []float64{5, 5, math.NaN(), 5}
	if got := NaNStd(values); got != 0 {
		t.Errorf("expected 0 for constant series, got %.6f", got)
	}
}

func TestNaNMinMax(t *testing.T) {
	values := []float64{math.NaN(), -2, 7, math.NaN(), 0}
	if got := NaNMin(values); got != -2 {
		t.Errorf("expected min -2, got %.2f", got)
	}
	if got := NaNMax(values); got != 7 {
		t.Errorf("expected max 7, got %.2f", got)
	}
	if got := NaNMin([]float64{math.NaN()}); !math.IsNaN(got) {
		t.Errorf("expected NaN min for all-missing slice, got %.2f", got)
	}
}

func TestNaNSum_AllMissingIsNaN(t *testing.T) {
	if got := NaNSum([]float64{1, math.NaN(), 2}); got != 3 {
		t.Errorf("expected sum 3, got %.2f", got)
	}
	if got := NaNSum([]float64{math.NaN()}); !math.IsNaN(got) {
		t.Errorf("expected NaN sum for all-missing slice, got %.2f", got)
	}
}

func TestObservedCount(t *testing.T) {
	values := []float64{1, math.NaN(), 2}
	if got := ObservedCount(values); got != 2 {
		t.Errorf("expected 2 observed, got %d", got)
	}
	if got := NaNCount(values); got != 1 {
		t.Errorf("expected 1 missing, got %d", got)
	}
}

func TestObserved_Filters(t *testing.T) {
	got := Observed([]float64{math.NaN(), 1, math.NaN(), 2})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("unexpected observed slice: %v", got)
	}
}
