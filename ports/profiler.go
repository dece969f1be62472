package ports

import (
	"context"

	"cohortprep/domain/profiling"
	"cohortprep/domain/series"
)

// Profiler computes missingness and distribution profiles for a panel
type Profiler interface {
	Profile(ctx context.Context, panel *series.Panel) (*profiling.CohortProfile, error)
}
