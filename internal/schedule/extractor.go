// Package schedule extracts scheduled-spot records from plan workbooks.
//
// Plan grids are irregular: a banner region above the header row, fixed
// descriptor columns on the left, then one column per calendar day whose
// month/year label lives in a merged cell three rows above the header. Cell
// values in the dated columns are repeat counts; a count of N expands to N
// discrete spots so the reconciliation engine can corroborate each airing
// independently.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/normalize"
)

const (
	// headerScanRows bounds the search for the header row.
	headerScanRows = 24
	// fixedColumnSpan bounds the descriptor-column mapping (columns A-R).
	fixedColumnSpan = 18
	// dateColumnStart is the first dated column (column S, zero-based).
	dateColumnStart = 18
	// monthRowOffset and dayRowOffset locate the date labels relative to the
	// header row.
	monthRowOffset = 3
	dayRowOffset   = 1

	// kpiSummarySheet is the workbook's aggregate sheet; it carries no spot
	// rows and is excluded from selection.
	kpiSummarySheet = "Final KPIs"
)

// LayoutError reports that a workbook does not follow the expected grid
// layout. It is fatal to the extraction call.
type LayoutError struct {
	Reason string
}

func (e *LayoutError) Error() string {
	return "schedule: " + e.Reason
}

// columnRule maps one spot field to the header substrings that identify its
// column. Rules are checked in declaration order and the first matching
// column wins, so ambiguous headers resolve deterministically. When no header
// matches, the fallback index is used and extraction degrades instead of
// failing on minor header drift.
type columnRule struct {
	field      string
	substrings []string
	fallback   int
}

var fixedColumns = []columnRule{
	{field: "program", substrings: []string{"program"}, fallback: 0},
	{field: "commercial", substrings: []string{"com name"}, fallback: 1},
	{field: "duration", substrings: []string{"duration"}, fallback: 2},
	{field: "language", substrings: []string{"language"}, fallback: 3},
	{field: "time", substrings: []string{"time"}, fallback: 5},
	{field: "rate_card", substrings: []string{"nrate"}, fallback: 7},
	{field: "negotiated", substrings: []string{"ncost"}, fallback: 8},
}

// rowStoplist marks aggregate rows (totals, bonus summaries) that are not
// individual spots.
var rowStoplist = []string{"total", "benefit", "bonus", "commercial"}

// ListSheets returns the selectable sheet names of a plan workbook, excluding
// the KPI summary sheet.
func ListSheets(f *xlsx.File) []string {
	names := make([]string, 0, len(f.Sheets))
	for _, s := range f.Sheets {
		if s.Name == kpiSummarySheet {
			continue
		}
		names = append(names, s.Name)
	}
	return names
}

// Extract walks one plan sheet and returns its scheduled spots in (row, dated
// column) traversal order. Channel and advertiser are not present in the grid
// and are stamped onto every spot from the caller's values.
func Extract(f *xlsx.File, sheetName, channel, advertiser string) ([]model.ScheduledSpot, error) {
	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("schedule: sheet %q not found", sheetName)
	}

	headerRow, err := findHeaderRow(sheet)
	if err != nil {
		return nil, err
	}

	cols := mapFixedColumns(sheet, headerRow)
	dateCols := discoverDateColumns(sheet, headerRow)

	var spots []model.ScheduledSpot
	for r := headerRow + 1; r < len(sheet.Rows); r++ {
		program := strings.TrimSpace(cellString(sheet, r, cols["program"]))
		if program == "" || stoplisted(program) {
			continue
		}

		base := model.ScheduledSpot{
			Program:        program,
			CommercialName: strings.TrimSpace(cellString(sheet, r, cols["commercial"])),
			Duration:       strings.TrimSpace(cellString(sheet, r, cols["duration"])),
			Language:       strings.TrimSpace(cellString(sheet, r, cols["language"])),
			TimeLabel:      strings.TrimSpace(cellString(sheet, r, cols["time"])),
			RateCardRate:   parseRate(cellString(sheet, r, cols["rate_card"])),
			NegotiatedRate: parseRate(cellString(sheet, r, cols["negotiated"])),
			Channel:        channel,
			Advertiser:     advertiser,
		}

		for _, dc := range dateCols {
			count := spotCount(cellString(sheet, r, dc.col))
			if count <= 0 {
				continue
			}
			spot := base
			spot.DateLabel = dc.label
			spot.Date = dc.date
			for i := 0; i < count; i++ {
				spots = append(spots, spot)
			}
		}
	}

	zap.L().Debug("extracted schedule grid",
		zap.String("sheet", sheetName),
		zap.Int("header_row", headerRow),
		zap.Int("date_columns", len(dateCols)),
		zap.Int("spots", len(spots)),
	)

	return spots, nil
}

// findHeaderRow scans column A of the first rows for the header marker.
func findHeaderRow(sheet *xlsx.Sheet) (int, error) {
	limit := headerScanRows
	if len(sheet.Rows) < limit {
		limit = len(sheet.Rows)
	}
	for r := 0; r < limit; r++ {
		if strings.Contains(strings.ToLower(cellString(sheet, r, 0)), "program") {
			return r, nil
		}
	}
	return 0, &LayoutError{Reason: "header not found"}
}

// mapFixedColumns resolves the descriptor-column index for each spot field.
func mapFixedColumns(sheet *xlsx.Sheet, headerRow int) map[string]int {
	cols := make(map[string]int, len(fixedColumns))
	for _, rule := range fixedColumns {
		cols[rule.field] = rule.fallback
		for c := 0; c < fixedColumnSpan; c++ {
			header := strings.ToLower(cellString(sheet, headerRow, c))
			if header == "" {
				continue
			}
			if matchesRule(header, rule) {
				cols[rule.field] = c
				break
			}
		}
	}
	return cols
}

func matchesRule(header string, rule columnRule) bool {
	for _, sub := range rule.substrings {
		if strings.Contains(header, sub) {
			return true
		}
	}
	return false
}

// dateColumn is one dated grid column with its composed label and parsed date.
type dateColumn struct {
	col   int
	label string
	date  time.Time
}

// discoverDateColumns walks the contiguous dated columns after the fixed
// span. Each column's day number sits one row above the header; the month/year
// label sits three rows above, usually inside a merged region whose top-left
// cell carries the value. Scanning stops at the first column without a day
// number.
func discoverDateColumns(sheet *xlsx.Sheet, headerRow int) []dateColumn {
	var cols []dateColumn
	for c := dateColumnStart; ; c++ {
		day := numberString(cellString(sheet, headerRow-dayRowOffset, c))
		if day == "" {
			break
		}
		monthYear := strings.TrimSpace(mergedValue(sheet, headerRow-monthRowOffset, c))
		label := day + " " + monthYear

		dc := dateColumn{col: c, label: label}
		if d, ok := normalize.ParseScheduleDate(label); ok {
			dc.date = d
		}
		cols = append(cols, dc)
	}
	return cols
}

// mergedValue resolves a cell through merged-region membership: when the cell
// itself is empty, the top-left anchor of the region covering it is
// authoritative.
func mergedValue(sheet *xlsx.Sheet, row, col int) string {
	if v := cellString(sheet, row, col); strings.TrimSpace(v) != "" {
		return v
	}
	for r := 0; r <= row && r < len(sheet.Rows); r++ {
		cells := sheet.Rows[r].Cells
		for c := 0; c <= col && c < len(cells); c++ {
			cell := cells[c]
			if cell == nil || (cell.HMerge == 0 && cell.VMerge == 0) {
				continue
			}
			if row <= r+cell.VMerge && col <= c+cell.HMerge {
				return cell.String()
			}
		}
	}
	return ""
}

func stoplisted(program string) bool {
	lower := strings.ToLower(program)
	for _, marker := range rowStoplist {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// cellString returns the rendered value at (row, col), or "" when the cell is
// out of range. Plan rows are ragged past the last populated cell.
func cellString(sheet *xlsx.Sheet, row, col int) string {
	if row < 0 || row >= len(sheet.Rows) || col < 0 {
		return ""
	}
	cells := sheet.Rows[row].Cells
	if col >= len(cells) || cells[col] == nil {
		return ""
	}
	return cells[col].String()
}

// spotCount parses a repeat-count cell. Non-numeric and non-positive values
// mean no spots in that column.
func spotCount(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int(f)
}

// numberString normalizes a numeric cell rendering ("21", "21.0") to a plain
// integer string, leaving non-numeric text as-is.
func numberString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

// parseRate parses a rate cell, tolerating thousands separators. Returns nil
// when the cell is empty or non-numeric.
func parseRate(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
