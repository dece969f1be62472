package ingest

import (
	"time"
)

// RawTable is the header/rows form of a source file before panel assembly
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Observation is one parsed long-format row: a participant's value for one
// variable at one point in time
type Observation struct {
	Participant string
	Timestamp   time.Time
	Variable    string
	Value       float64
}

// Reserved column headers in long-format files. Matching is
// case-insensitive; every other column is treated as a clinical variable.
const (
	participantColumn = "participant_id"
	timestampColumn   = "timestamp"
)

// Alternate header spellings accepted for the reserved columns
var (
	participantAliases = []string{"participant_id", "participant", "subject_id", "patient_id"}
	timestampAliases   = []string{"timestamp", "date", "time", "day"}
)

// missingTokens are cell values treated as a missing observation
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
}

// timestampLayouts are tried in order when parsing the time column
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}
