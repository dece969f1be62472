package ingest

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"cohortprep/domain/dataset"
)

// dictionarySheet is the optional sheet carrying the data dictionary
const dictionarySheet = "Dictionary"

// readDictionary pulls variable descriptions from the Dictionary sheet
// when present. The expected layout is a header row with some of:
// variable, label, unit, min, max, comments. A missing sheet or malformed
// rows are not an error; the dictionary is best-effort metadata.
func readDictionary(f *excelize.File) map[string]dataset.DictionaryEntry {
	rows, err := f.GetRows(dictionarySheet)
	if err != nil || len(rows) < 2 {
		return nil
	}

	col := map[string]int{}
	for i, header := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(header))] = i
	}
	keyCol, ok := col["variable"]
	if !ok {
		if keyCol, ok = col["key"]; !ok {
			return nil
		}
	}

	dictionary := map[string]dataset.DictionaryEntry{}
	for _, row := range rows[1:] {
		if keyCol >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[keyCol])
		if key == "" {
			continue
		}

		entry := dataset.DictionaryEntry{
			Label:    cellAt(row, col, "label"),
			Unit:     cellAt(row, col, "unit"),
			Comments: cellAt(row, col, "comments"),
		}
		if v, ok := floatAt(row, col, "min"); ok {
			entry.Min = &v
		}
		if v, ok := floatAt(row, col, "max"); ok {
			entry.Max = &v
		}

		dictionary[key] = entry
	}

	if len(dictionary) == 0 {
		return nil
	}
	return dictionary
}

func cellAt(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func floatAt(row []string, col map[string]int, name string) (float64, bool) {
	cell := cellAt(row, col, name)
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
