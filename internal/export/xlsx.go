// Package export serializes extraction and reconciliation outputs for
// download. Dates round-trip as native spreadsheet date cells, not text.
package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/normalize"
)

// extractSheetName is the sheet the extracted schedule is written to.
const extractSheetName = "Extracted Row Data"

// dateCellFormat renders native date cells day-first, matching the preview
// tables.
const dateCellFormat = "dd/mm/yyyy"

// ScheduleHeaders is the fixed output column order for extracted schedules.
var ScheduleHeaders = []string{
	"Program", "Time", "Language", "Dur", "Rate Card Rate",
	"Negotiated Rate", "Date", "Commercial Name", "Channel", "Advertiser",
}

// WriteScheduleXLSX writes extracted spots as a workbook. Parsed dates become
// date cells; spots whose label never parsed keep the raw label as text so no
// information is dropped on export.
func WriteScheduleXLSX(w io.Writer, spots []model.ScheduledSpot) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(extractSheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range ScheduleHeaders {
		header.AddCell().SetString(h)
	}

	for _, s := range spots {
		row := sheet.AddRow()
		row.AddCell().SetString(s.Program)
		row.AddCell().SetString(s.TimeLabel)
		row.AddCell().SetString(s.Language)
		row.AddCell().SetString(s.Duration)
		addRateCell(row, s.RateCardRate)
		addRateCell(row, s.NegotiatedRate)

		dateCell := row.AddCell()
		if s.Date.IsZero() {
			dateCell.SetString(s.DateLabel)
		} else {
			dateCell.SetDate(s.Date)
			dateCell.NumFmt = dateCellFormat
		}

		row.AddCell().SetString(s.CommercialName)
		row.AddCell().SetString(s.Channel)
		row.AddCell().SetString(s.Advertiser)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func addRateCell(row *xlsx.Row, rate *float64) {
	cell := row.AddCell()
	if rate != nil {
		cell.SetFloat(*rate)
	}
}

// FormatRate renders a nullable rate for text tables.
func FormatRate(rate *float64) string {
	if rate == nil {
		return ""
	}
	return strconv.FormatFloat(*rate, 'f', -1, 64)
}

// SpotDisplayDate renders the spot's date for text tables, falling back to
// the raw grid label when unparsed.
func SpotDisplayDate(s model.ScheduledSpot) string {
	if s.Date.IsZero() {
		return s.DateLabel
	}
	return normalize.DisplayDate(s.Date)
}

// SpotRow renders a spot as one text-table row in ScheduleHeaders order.
func SpotRow(s model.ScheduledSpot) []string {
	return []string{
		s.Program, s.TimeLabel, s.Language, s.Duration,
		FormatRate(s.RateCardRate), FormatRate(s.NegotiatedRate),
		SpotDisplayDate(s), s.CommercialName, s.Channel, s.Advertiser,
	}
}
