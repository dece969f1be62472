package ingest

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortprep/domain/core"
	"cohortprep/domain/series"
	"cohortprep/ports"
)

func TestWritePanelCSV_RoundTrip(t *testing.T) {
	grid := series.Grid{
		Start:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Resolution: series.ResolutionDay,
		Length:     3,
		Stride:     1,
	}
	panel := series.NewPanel(
		[]core.ParticipantID{"p1", "p2"},
		[]core.VariableKey{"hr", "steps"},
		grid,
	)
	panel.Set(0, 0, 0, 60)
	panel.Set(0, 1, 0, 62.5)
	panel.Set(0, 2, 1, 1200)
	panel.Set(1, 0, 0, 70)
	panel.Set(1, 2, 0, 72)
	// (0,0,1), (1,1,*) etc. stay missing

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, WritePanelCSV(path, panel))

	result, err := NewDataReader(nil).ReadPanel(context.Background(), path, ports.ReadOptions{
		Resolution: series.ResolutionDay,
	})
	require.NoError(t, err)

	got := result.Panel
	assert.Equal(t, 2, got.NumParticipants())
	assert.Equal(t, 3, got.NumTimesteps())
	assert.Equal(t, 2, got.NumVariables())

	hr := got.VariableIndex("hr")
	steps := got.VariableIndex("steps")
	require.GreaterOrEqual(t, hr, 0)
	require.GreaterOrEqual(t, steps, 0)

	assert.InDelta(t, 60, got.At(0, 0, hr), 1e-9)
	assert.InDelta(t, 62.5, got.At(0, 1, hr), 1e-9)
	assert.InDelta(t, 1200, got.At(0, 2, steps), 1e-9)
	assert.InDelta(t, 72, got.At(1, 2, hr), 1e-9)
	assert.True(t, math.IsNaN(got.At(0, 0, steps)), "missing cell must stay missing")
	assert.True(t, math.IsNaN(got.At(1, 1, hr)), "missing cell must stay missing")
}
