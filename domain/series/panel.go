package series

import (
	"math"

	"cohortprep/domain/core"
)

// Panel is a rectangular block of multivariate time-series observations:
// one value per (participant, timestep, variable) cell. Missing values are
// stored as NaN. The backing slice is laid out participant-major, then
// timestep, then variable.
type Panel struct {
	Participants []core.ParticipantID
	Variables    []core.VariableKey
	Grid         Grid
	values       []float64
}

// NewPanel allocates a panel with every cell marked missing
func NewPanel(participants []core.ParticipantID, variables []core.VariableKey, grid Grid) *Panel {
	values := make([]float64, len(participants)*grid.Length*len(variables))
	for i := range values {
		values[i] = math.NaN()
	}
	return &Panel{
		Participants: participants,
		Variables:    variables,
		Grid:         grid,
		values:       values,
	}
}

// NewPanelFromValues wraps an existing value block. The slice must hold
// exactly participants × timesteps × variables values.
func NewPanelFromValues(participants []core.ParticipantID, variables []core.VariableKey, grid Grid, values []float64) (*Panel, error) {
	want := len(participants) * grid.Length * len(variables)
	if len(values) != want {
		return nil, core.NewShapeError(want, len(values))
	}
	return &Panel{
		Participants: participants,
		Variables:    variables,
		Grid:         grid,
		values:       values,
	}, nil
}

// NumParticipants returns the participant axis length
func (p *Panel) NumParticipants() int { return len(p.Participants) }

// NumTimesteps returns the time axis length
func (p *Panel) NumTimesteps() int { return p.Grid.Length }

// NumVariables returns the variable axis length
func (p *Panel) NumVariables() int { return len(p.Variables) }

// IsEmpty reports whether the panel holds no cells
func (p *Panel) IsEmpty() bool { return len(p.values) == 0 }

func (p *Panel) index(participant, timestep, variable int) int {
	return (participant*p.Grid.Length+timestep)*len(p.Variables) + variable
}

// At returns the value at (participant, timestep, variable)
func (p *Panel) At(participant, timestep, variable int) float64 {
	return p.values[p.index(participant, timestep, variable)]
}

// Set stores a value at (participant, timestep, variable)
func (p *Panel) Set(participant, timestep, variable int, value float64) {
	p.values[p.index(participant, timestep, variable)] = value
}

// IsMissing reports whether the cell holds no observation
func (p *Panel) IsMissing(participant, timestep, variable int) bool {
	return math.IsNaN(p.At(participant, timestep, variable))
}

// Series extracts one participant's series for one variable as a fresh slice
// of length NumTimesteps
func (p *Panel) Series(participant, variable int) []float64 {
	out := make([]float64, p.Grid.Length)
	for t := 0; t < p.Grid.Length; t++ {
		out[t] = p.At(participant, t, variable)
	}
	return out
}

// SetSeries writes a full series back for one participant and variable
func (p *Panel) SetSeries(participant, variable int, values []float64) error {
	if len(values) != p.Grid.Length {
		return core.NewShapeError(p.Grid.Length, len(values))
	}
	for t, v := range values {
		p.Set(participant, t, variable, v)
	}
	return nil
}

// VariableValues pools every observation of one variable across all
// participants and timesteps, preserving panel order
func (p *Panel) VariableValues(variable int) []float64 {
	out := make([]float64, 0, p.NumParticipants()*p.Grid.Length)
	for participant := 0; participant < p.NumParticipants(); participant++ {
		for t := 0; t < p.Grid.Length; t++ {
			out = append(out, p.At(participant, t, variable))
		}
	}
	return out
}

// VariableIndex returns the axis position of a variable key, or -1
func (p *Panel) VariableIndex(key core.VariableKey) int {
	for i, v := range p.Variables {
		if v == key {
			return i
		}
	}
	return -1
}

// ParticipantIndex returns the axis position of a participant, or -1
func (p *Panel) ParticipantIndex(id core.ParticipantID) int {
	for i, candidate := range p.Participants {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the panel
func (p *Panel) Clone() *Panel {
	values := make([]float64, len(p.values))
	copy(values, p.values)
	participants := make([]core.ParticipantID, len(p.Participants))
	copy(participants, p.Participants)
	variables := make([]core.VariableKey, len(p.Variables))
	copy(variables, p.Variables)
	return &Panel{
		Participants: participants,
		Variables:    variables,
		Grid:         p.Grid,
		values:       values,
	}
}

// WithGrid returns a shallow metadata copy bound to a new grid. The caller
// must supply a value block matching the new shape.
func (p *Panel) WithGrid(grid Grid, values []float64) (*Panel, error) {
	return NewPanelFromValues(p.Participants, p.Variables, grid, values)
}

// Values exposes the backing slice for fingerprinting and bulk export.
// Callers must treat it as read-only.
func (p *Panel) Values() []float64 { return p.values }

// Fingerprint computes the content hash of the panel
func (p *Panel) Fingerprint() core.PanelFingerprint {
	participants := make([]string, len(p.Participants))
	for i, id := range p.Participants {
		participants[i] = string(id)
	}
	variables := make([]string, len(p.Variables))
	for i, key := range p.Variables {
		variables[i] = string(key)
	}
	return core.ComputePanelFingerprint(p.values, participants, variables)
}

// MissingRate returns the fraction of cells with no observation
func (p *Panel) MissingRate() float64 {
	if len(p.values) == 0 {
		return 0
	}
	missing := 0
	for _, v := range p.values {
		if math.IsNaN(v) {
			missing++
		}
	}
	return float64(missing) / float64(len(p.values))
}
