package profiling

import (
	"cohortprep/domain/core"
)

// VariableHealth classifies how usable a variable's observations are
type VariableHealth string

const (
	HealthComplete VariableHealth = "complete" // no missing values
	HealthPartial  VariableHealth = "partial"  // some missing values, below threshold
	HealthSparse   VariableHealth = "sparse"   // missing rate above threshold
	HealthEmpty    VariableHealth = "empty"    // no observations at all
	HealthConstant VariableHealth = "constant" // observed but zero variance
)

// VariableProfile contains the complete statistical profile of one
// variable across the whole cohort
type VariableProfile struct {
	VarKey       core.VariableKey `json:"var_key"`
	SampleSize   int              `json:"sample_size"` // cells on the grid
	MissingStats MissingStats     `json:"missing_stats"`
	Summary      SummaryStats     `json:"summary"`
	Distribution DistributionStats `json:"distribution"`
	Health       VariableHealth   `json:"health"`
	Warnings     []string         `json:"warnings,omitempty"`
	ComputedAt   core.Timestamp   `json:"computed_at"`
}

// MissingStats tracks missing value patterns for one variable
type MissingStats struct {
	MissingCount       int     `json:"missing_count"`
	MissingRate        float64 `json:"missing_rate"`
	ConsecutiveMissing int     `json:"consecutive_missing"` // Max consecutive missing in any participant series
}

// SummaryStats contains location and spread statistics over the observed
// values
type SummaryStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// DistributionStats describes the distribution shape of the observed
// values
type DistributionStats struct {
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess kurtosis
	IsNormal bool    `json:"is_normal"`
	NormalP  float64 `json:"normal_p"` // Jarque-Bera p-value
}

// ParticipantProfile summarizes one participant's missingness across all
// variables
type ParticipantProfile struct {
	ParticipantID core.ParticipantID `json:"participant_id"`
	MissingRate   float64            `json:"missing_rate"`
	ObservedCells int                `json:"observed_cells"`
	TotalCells    int                `json:"total_cells"`
}

// CohortProfile is the full profiling output for a panel
type CohortProfile struct {
	Participants int                  `json:"participants"`
	Timesteps    int                  `json:"timesteps"`
	Variables    []VariableProfile    `json:"variables"`
	PerParticipant []ParticipantProfile `json:"per_participant"`
	MissingRate  float64              `json:"missing_rate"` // whole-panel
	ComputedAt   core.Timestamp       `json:"computed_at"`
}

// Variable returns the profile for a variable key, or nil
func (c *CohortProfile) Variable(key core.VariableKey) *VariableProfile {
	for i := range c.Variables {
		if c.Variables[i].VarKey == key {
			return &c.Variables[i]
		}
	}
	return nil
}

// SparseVariables lists variables whose health is sparse or empty
func (c *CohortProfile) SparseVariables() []core.VariableKey {
	var keys []core.VariableKey
	for _, v := range c.Variables {
		if v.Health == HealthSparse || v.Health == HealthEmpty {
			keys = append(keys, v.VarKey)
		}
	}
	return keys
}
