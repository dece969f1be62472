package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
	"cohortprep/domain/preprocess"
	"cohortprep/domain/series"
	"cohortprep/internal"
	"cohortprep/ports"
)

// dataSheet is the sheet holding observations in XLSX files
const dataSheet = "Sheet1"

// DataReader ingests long-format clinical files (CSV and XLSX) into
// panels on a regular time grid
type DataReader struct {
	log *internal.Logger
}

// NewDataReader creates a reader for both CSV and XLSX files
func NewDataReader(log *internal.Logger) ports.PanelReader {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &DataReader{log: log}
}

// ReadPanel reads a file and assembles the cohort panel
func (r *DataReader) ReadPanel(ctx context.Context, path string, opts ports.ReadOptions) (*ports.ReadResult, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, core.NewIngestionError(path, fmt.Errorf("file not found"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.Resolution.IsValid() {
		opts.Resolution = series.ResolutionDay
	}
	if opts.Aggregation == "" {
		opts.Aggregation = preprocess.AggMean
	}
	if !opts.Aggregation.IsValid() {
		return nil, core.NewValidationError("aggregation", string(opts.Aggregation))
	}

	var (
		table      *RawTable
		dictionary map[string]dataset.DictionaryEntry
		err        error
	)

	start := time.Now()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		table, err = readCSV(path)
	case ".xlsx", ".xlsm":
		table, dictionary, err = readExcel(path)
	default:
		return nil, core.NewIngestionError(path, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, core.NewIngestionError(path, err)
	}
	r.log.Debug("read %s in %.2fms (%d rows)", filepath.Base(path),
		float64(time.Since(start).Nanoseconds())/1e6, len(table.Rows))

	observations, warnings, err := parseObservations(table)
	if err != nil {
		return nil, core.NewIngestionError(path, err)
	}

	panel, assemblyWarnings, err := assemblePanel(observations, opts)
	if err != nil {
		return nil, core.NewIngestionError(path, err)
	}
	warnings = append(warnings, assemblyWarnings...)

	r.log.Info("ingested %s: %d participants x %d timesteps x %d variables (%.1f%% missing)",
		filepath.Base(path), panel.NumParticipants(), panel.NumTimesteps(),
		panel.NumVariables(), panel.MissingRate()*100)

	return &ports.ReadResult{
		Panel:      panel,
		Dictionary: dictionary,
		Warnings:   warnings,
	}, nil
}

func readCSV(path string) (*RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows tolerated, validated later
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	return tableFromRows(rows)
}

func readExcel(path string) (*RawTable, map[string]dataset.DictionaryEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(dataSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", dataSheet, err)
	}

	table, err := tableFromRows(rows)
	if err != nil {
		return nil, nil, err
	}

	dictionary := readDictionary(f)
	return table, dictionary, nil
}

func tableFromRows(rows [][]string) (*RawTable, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	return &RawTable{Headers: headers, Rows: rows[1:]}, nil
}

// parseObservations converts a long-format table into observations, one
// per (row, variable column) pair
func parseObservations(table *RawTable) ([]Observation, []string, error) {
	participantCol := headerIndex(table.Headers, participantAliases)
	if participantCol < 0 {
		return nil, nil, core.ErrNoParticipants
	}
	timeCol := headerIndex(table.Headers, timestampAliases)
	if timeCol < 0 {
		return nil, nil, core.ErrNoTimeColumn
	}

	var variableCols []int
	for i := range table.Headers {
		if i != participantCol && i != timeCol && table.Headers[i] != "" {
			variableCols = append(variableCols, i)
		}
	}
	if len(variableCols) == 0 {
		return nil, nil, fmt.Errorf("no variable columns found")
	}

	var (
		observations []Observation
		badTimeRows  int
		badCells     int
	)

	for _, row := range table.Rows {
		if participantCol >= len(row) || timeCol >= len(row) {
			continue
		}
		participant := strings.TrimSpace(row[participantCol])
		if participant == "" {
			continue
		}

		ts, ok := coerceTimestamp(row[timeCol])
		if !ok {
			badTimeRows++
			continue
		}

		for _, col := range variableCols {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			value, parseFailure := coerceNumeric(cell)
			if parseFailure {
				badCells++
			}
			observations = append(observations, Observation{
				Participant: participant,
				Timestamp:   ts,
				Variable:    table.Headers[col],
				Value:       value,
			})
		}
	}

	if len(observations) == 0 {
		return nil, nil, core.ErrNoParticipants
	}

	var warnings []string
	if badTimeRows > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows dropped: unparseable timestamp", badTimeRows))
	}
	if badCells > 0 {
		warnings = append(warnings, fmt.Sprintf("%d cells treated as missing: unparseable value", badCells))
	}

	return observations, warnings, nil
}

// assemblePanel buckets observations onto a shared grid. Multiple
// observations in the same bucket are collapsed with the configured
// aggregation; cells with no observation stay missing.
func assemblePanel(observations []Observation, opts ports.ReadOptions) (*series.Panel, []string, error) {
	var minTime, maxTime time.Time
	participantSet := map[string]bool{}
	variableSet := map[string]bool{}
	var variableOrder []string

	for _, obs := range observations {
		if minTime.IsZero() || obs.Timestamp.Before(minTime) {
			minTime = obs.Timestamp
		}
		if maxTime.IsZero() || obs.Timestamp.After(maxTime) {
			maxTime = obs.Timestamp
		}
		participantSet[obs.Participant] = true
		if !variableSet[obs.Variable] {
			variableSet[obs.Variable] = true
			variableOrder = append(variableOrder, obs.Variable)
		}
	}

	participants := make([]core.ParticipantID, 0, len(participantSet))
	for p := range participantSet {
		participants = append(participants, core.ParticipantID(p))
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i] < participants[j] })

	variables := make([]core.VariableKey, len(variableOrder))
	for i, v := range variableOrder {
		variables[i] = core.VariableKey(v)
	}

	grid := series.NewGrid(minTime, maxTime, opts.Resolution)
	if grid.Length == 0 {
		return nil, nil, core.ErrInsufficientData
	}

	participantIndex := make(map[string]int, len(participants))
	for i, p := range participants {
		participantIndex[string(p)] = i
	}
	variableIndex := make(map[string]int, len(variables))
	for i, v := range variables {
		variableIndex[string(v)] = i
	}

	// Bucket values per cell, then collapse
	type cellKey struct{ p, t, v int }
	buckets := map[cellKey][]float64{}
	for _, obs := range observations {
		t := grid.Index(obs.Timestamp)
		if t < 0 {
			continue
		}
		key := cellKey{participantIndex[obs.Participant], t, variableIndex[obs.Variable]}
		buckets[key] = append(buckets[key], obs.Value)
	}

	panel := series.NewPanel(participants, variables, grid)
	for key, values := range buckets {
		panel.Set(key.p, key.t, key.v, aggregate(values, opts.Aggregation))
	}

	warnings := gapWarnings(panel, opts.MaxGapRatio)
	return panel, warnings, nil
}

func aggregate(values []float64, agg preprocess.Aggregation) float64 {
	switch agg {
	case preprocess.AggSum:
		return series.NaNSum(values)
	case preprocess.AggMin:
		return series.NaNMin(values)
	case preprocess.AggMax:
		return series.NaNMax(values)
	case preprocess.AggCount:
		return float64(series.ObservedCount(values))
	default:
		return series.NaNMean(values)
	}
}

// gapWarnings flags variables whose missing rate exceeds the threshold
func gapWarnings(panel *series.Panel, maxGapRatio float64) []string {
	if maxGapRatio <= 0 {
		return nil
	}
	var warnings []string
	for v := 0; v < panel.NumVariables(); v++ {
		pooled := panel.VariableValues(v)
		missing := float64(series.NaNCount(pooled)) / float64(len(pooled))
		if missing > maxGapRatio {
			warnings = append(warnings, fmt.Sprintf(
				"variable %s: missing rate %.0f%% exceeds %.0f%% threshold",
				panel.Variables[v], missing*100, maxGapRatio*100))
		}
	}
	return warnings
}
