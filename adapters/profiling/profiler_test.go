package profiling

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"cohortprep/domain/core"
	"cohortprep/domain/profiling"
	"cohortprep/domain/series"
)

func buildPanel(t *testing.T, participants, timesteps int, variables []core.VariableKey, values []float64) *series.Panel {
	t.Helper()
	ids := make([]core.ParticipantID, participants)
	for i := range ids {
		ids[i] = core.ParticipantID(string(rune('a' + i)))
	}
	grid := series.Grid{
		Start:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Resolution: series.ResolutionDay,
		Length:     timesteps,
		Stride:     1,
	}
	panel, err := series.NewPanelFromValues(ids, variables, grid, values)
	if err != nil {
		t.Fatalf("building panel: %v", err)
	}
	return panel
}

func TestProfile_MissingnessAndSummary(t *testing.T) {
	panel := buildPanel(t, 2, 4, []core.VariableKey{"heart_rate"}, []float64{
		60, math.NaN(), 64, 66,
		70, 72, math.NaN(), math.NaN(),
	})

	profile, err := NewProfiler(2).Profile(context.Background(), panel)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	if len(profile.Variables) != 1 {
		t.Fatalf("expected 1 variable profile, got %d", len(profile.Variables))
	}

	hr := profile.Variables[0]
	if hr.MissingStats.MissingCount != 3 {
		t.Errorf("expected 3 missing cells, got %d", hr.MissingStats.MissingCount)
	}
	if math.Abs(hr.MissingStats.MissingRate-3.0/8.0) > 1e-12 {
		t.Errorf("expected missing rate 0.375, got %.4f", hr.MissingStats.MissingRate)
	}
	if hr.MissingStats.ConsecutiveMissing != 2 {
		t.Errorf("expected max consecutive run 2, got %d", hr.MissingStats.ConsecutiveMissing)
	}

	// Observed {60, 64, 66, 70, 72}: mean 66.4
	if math.Abs(hr.Summary.Mean-66.4) > 1e-9 {
		t.Errorf("expected mean 66.4, got %.4f", hr.Summary.Mean)
	}
	if hr.Health != profiling.HealthPartial {
		t.Errorf("expected partial health, got %s", hr.Health)
	}

	// Panel-wide missing rate
	if math.Abs(profile.MissingRate-3.0/8.0) > 1e-12 {
		t.Errorf("expected cohort missing rate 0.375, got %.4f", profile.MissingRate)
	}
}

func TestProfile_HealthClassification(t *testing.T) {
	panel := buildPanel(t, 1, 5,
		[]core.VariableKey{"complete", "empty", "constant", "sparse"},
		[]float64{
			// one row per timestep, one column per variable
			1, math.NaN(), 5, math.NaN(),
			2, math.NaN(), 5, math.NaN(),
			3, math.NaN(), 5, math.NaN(),
			4, math.NaN(), 5, 9,
			5, math.NaN(), 5, 11,
		})

	profile, err := NewProfiler(4).Profile(context.Background(), panel)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	byKey := map[core.VariableKey]profiling.VariableHealth{}
	for _, v := range profile.Variables {
		byKey[v.VarKey] = v.Health
	}

	if byKey["complete"] != profiling.HealthComplete {
		t.Errorf("expected complete, got %s", byKey["complete"])
	}
	if byKey["empty"] != profiling.HealthEmpty {
		t.Errorf("expected empty, got %s", byKey["empty"])
	}
	if byKey["constant"] != profiling.HealthConstant {
		t.Errorf("expected constant, got %s", byKey["constant"])
	}
	if byKey["sparse"] != profiling.HealthSparse {
		t.Errorf("expected sparse, got %s", byKey["sparse"])
	}

	sparse := profile.SparseVariables()
	if len(sparse) != 2 {
		t.Errorf("expected 2 sparse/empty variables, got %v", sparse)
	}
}

func TestProfile_ParticipantProfiles(t *testing.T) {
	panel := buildPanel(t, 2, 2, []core.VariableKey{"steps"}, []float64{
		1, 2,
		math.NaN(), math.NaN(),
	})

	profile, err := NewProfiler(1).Profile(context.Background(), panel)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	if len(profile.PerParticipant) != 2 {
		t.Fatalf("expected 2 participant profiles, got %d", len(profile.PerParticipant))
	}
	if profile.PerParticipant[0].MissingRate != 0 {
		t.Errorf("participant a should have no missing data")
	}
	if profile.PerParticipant[1].MissingRate != 1 {
		t.Errorf("participant b should be fully missing")
	}
}

func TestNormality_GaussianVsSkewed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	gaussian := make([]float64, 500)
	for i := range gaussian {
		gaussian[i] = rng.NormFloat64()
	}
	skewed := make([]float64, 500)
	for i := range skewed {
		skewed[i] = math.Exp(rng.NormFloat64() * 1.5)
	}

	gMean, gStd := series.NaNMean(gaussian), series.NaNStd(gaussian)
	gDist := analyzeDistribution(gaussian, gMean, gStd)
	if !gDist.IsNormal {
		t.Errorf("gaussian sample flagged non-normal (p=%.4f)", gDist.NormalP)
	}

	sMean, sStd := series.NaNMean(skewed), series.NaNStd(skewed)
	sDist := analyzeDistribution(skewed, sMean, sStd)
	if sDist.IsNormal {
		t.Errorf("log-normal sample flagged normal (p=%.4f)", sDist.NormalP)
	}
	if sDist.Skewness <= 0 {
		t.Errorf("log-normal sample should be right-skewed, got %.4f", sDist.Skewness)
	}
}

func TestProfile_EmptyPanel(t *testing.T) {
	panel := series.NewPanel(nil, nil, series.Grid{})
	if _, err := NewProfiler(1).Profile(context.Background(), panel); err == nil {
		t.Error("expected error for empty panel")
	}
}
