package profiling

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"cohortprep/domain/core"
	"cohortprep/domain/profiling"
	"cohortprep/domain/series"
	"cohortprep/ports"
)

// sparseThreshold is the missing rate above which a variable is flagged
// sparse
const sparseThreshold = 0.5

// Profiler computes cohort profiles, fanning out per variable
type Profiler struct {
	workers int
}

// NewProfiler creates a profiler with bounded per-variable concurrency
func NewProfiler(workers int) ports.Profiler {
	if workers <= 0 {
		workers = 4
	}
	return &Profiler{workers: workers}
}

// Profile computes the full cohort profile for a panel
func (pr *Profiler) Profile(ctx context.Context, panel *series.Panel) (*profiling.CohortProfile, error) {
	if panel == nil || panel.IsEmpty() {
		return nil, core.ErrEmptyPanel
	}

	profile := &profiling.CohortProfile{
		Participants: panel.NumParticipants(),
		Timesteps:    panel.NumTimesteps(),
		Variables:    make([]profiling.VariableProfile, panel.NumVariables()),
		MissingRate:  panel.MissingRate(),
		ComputedAt:   core.Now(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pr.workers)

	var mu sync.Mutex
	for v := 0; v < panel.NumVariables(); v++ {
		v := v
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			varProfile, err := profileVariable(panel, v)
			if err != nil {
				return fmt.Errorf("profiling variable %s: %w", panel.Variables[v], err)
			}
			mu.Lock()
			profile.Variables[v] = *varProfile
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile.PerParticipant = profileParticipants(panel)
	return profile, nil
}

func profileVariable(panel *series.Panel, v int) (*profiling.VariableProfile, error) {
	pooled := panel.VariableValues(v)
	observed := series.Observed(pooled)

	profile := &profiling.VariableProfile{
		VarKey:     panel.Variables[v],
		SampleSize: len(pooled),
		MissingStats: profiling.MissingStats{
			MissingCount:       len(pooled) - len(observed),
			MissingRate:        missingRate(len(pooled), len(observed)),
			ConsecutiveMissing: maxConsecutiveMissing(panel, v),
		},
		ComputedAt: core.Now(),
	}

	if len(observed) == 0 {
		profile.Health = profiling.HealthEmpty
		profile.Warnings = append(profile.Warnings, "variable has no observations")
		return profile, nil
	}

	summary, err := summarize(observed)
	if err != nil {
		return nil, err
	}
	profile.Summary = *summary

	if summary.StdDev > 0 {
		profile.Distribution = analyzeDistribution(observed, summary.Mean, summary.StdDev)
	}

	// Sparseness outranks constantness: a mostly-missing variable is a
	// coverage problem before it is a variance problem
	switch {
	case profile.MissingStats.MissingRate > sparseThreshold:
		profile.Health = profiling.HealthSparse
		profile.Warnings = append(profile.Warnings,
			fmt.Sprintf("missing rate %.0f%% exceeds %.0f%% threshold",
				profile.MissingStats.MissingRate*100, sparseThreshold*100))
	case summary.StdDev == 0:
		profile.Health = profiling.HealthConstant
		profile.Warnings = append(profile.Warnings, "variable has zero variance")
	case profile.MissingStats.MissingRate == 0:
		profile.Health = profiling.HealthComplete
	default:
		profile.Health = profiling.HealthPartial
	}

	return profile, nil
}

func profileParticipants(panel *series.Panel) []profiling.ParticipantProfile {
	cellsPerParticipant := panel.NumTimesteps() * panel.NumVariables()
	out := make([]profiling.ParticipantProfile, panel.NumParticipants())
	for p := range out {
		observed := 0
		for t := 0; t < panel.NumTimesteps(); t++ {
			for v := 0; v < panel.NumVariables(); v++ {
				if !panel.IsMissing(p, t, v) {
					observed++
				}
			}
		}
		out[p] = profiling.ParticipantProfile{
			ParticipantID: panel.Participants[p],
			MissingRate:   missingRate(cellsPerParticipant, observed),
			ObservedCells: observed,
			TotalCells:    cellsPerParticipant,
		}
	}
	return out
}

// maxConsecutiveMissing finds the longest run of missing values in any
// single participant series for the variable
func maxConsecutiveMissing(panel *series.Panel, v int) int {
	longest := 0
	for p := 0; p < panel.NumParticipants(); p++ {
		run := 0
		for t := 0; t < panel.NumTimesteps(); t++ {
			if panel.IsMissing(p, t, v) {
				run++
				if run > longest {
					longest = run
				}
			} else {
				run = 0
			}
		}
	}
	return longest
}

func missingRate(total, observed int) float64 {
	if total == 0 {
		return 0
	}
	return float64(total-observed) / float64(total)
}
