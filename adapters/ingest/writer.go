package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"cohortprep/domain/series"
)

// WritePanelCSV exports a panel in wide format: one row per
// (participant, timestep), one column per variable. Missing cells are
// written as empty strings.
func WritePanelCSV(path string, panel *series.Panel) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := make([]string, 0, 2+panel.NumVariables())
	header = append(header, "participant_id", "timestamp")
	for _, key := range panel.Variables {
		header = append(header, string(key))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	timestamps := panel.Grid.Timestamps()
	row := make([]string, len(header))
	for p := 0; p < panel.NumParticipants(); p++ {
		for t := 0; t < panel.NumTimesteps(); t++ {
			row[0] = string(panel.Participants[p])
			row[1] = timestamps[t].Format(time.RFC3339)
			for v := 0; v < panel.NumVariables(); v++ {
				if panel.IsMissing(p, t, v) {
					row[2+v] = ""
				} else {
					row[2+v] = strconv.FormatFloat(panel.At(p, t, v), 'g', -1, 64)
				}
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	w.Flush()
	return w.Error()
}
